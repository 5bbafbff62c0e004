package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/llm"
	llm_mocks "raggedbooks/internal/llm/mocks"

	"go.uber.org/mock/gomock"
)

var testResults = []Result{
	{Score: 0.9, Chunk: book.Chunk{BookTitle: "Dune", ChapterPath: "Book One > Arrakis", PageNumber: 3, Text: "The spice must flow."}},
	{Score: 0.4, Chunk: book.Chunk{BookTitle: "Hobbit", PageNumber: 70, Text: "What have I got in my pocket?"}},
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Why does the spice matter?", testResults)
	want := "Using the following information:\n" +
		"=====\n" +
		"---\n" +
		"[Dune | Book One > Arrakis | Page 3]\n" +
		"The spice must flow.\n" +
		"---\n" +
		"[Hobbit | Page 70]\n" +
		"What have I got in my pocket?\n" +
		"\n" +
		"=====\n" +
		"Answer the following question:\n" +
		"---\n" +
		"Why does the spice matter?\n"
	if got != want {
		t.Errorf("BuildPrompt() =\n%s\nwant\n%s", got, want)
	}
}

func TestSynthesizer_Answer_NoResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No expectations: any chat call fails the test.
	chat := llm_mocks.NewMockChatCompleter(ctrl)

	for _, results := range [][]Result{nil, {}} {
		got, err := NewSynthesizer(chat).Answer(context.Background(), "anything?", results)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if !got.NoResults || got.Text != "" {
			t.Errorf("Answer() = %+v, want NoResults", got)
		}
	}
}

func TestSynthesizer_Answer(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := llm_mocks.NewMockChatCompleter(ctrl)

	const modelAnswer = "  **Because** it flows.\n"
	chat.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), llm.ChatParams{Temperature: 0.2}).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
			if len(messages) != 2 {
				t.Fatalf("got %d messages, want 2", len(messages))
			}
			if messages[0].Role != llm.RoleSystem || messages[0].Content != SystemPrompt {
				t.Errorf("system message = %+v", messages[0])
			}
			if messages[1].Role != llm.RoleUser {
				t.Errorf("user role = %q", messages[1].Role)
			}
			user := messages[1].Content
			if !strings.HasSuffix(user, "Why?\n") {
				t.Errorf("question is not last in %q", user)
			}
			first := strings.Index(user, "The spice must flow.")
			second := strings.Index(user, "What have I got in my pocket?")
			if first < 0 || second < 0 || first > second {
				t.Errorf("chunks missing or out of order in %q", user)
			}
			return modelAnswer, nil
		})

	got, err := NewSynthesizer(chat, WithTemperature(0.2)).Answer(context.Background(), "Why?", testResults)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.NoResults {
		t.Error("Answer().NoResults = true, want false")
	}
	if got.Text != modelAnswer {
		t.Errorf("Answer().Text = %q, want %q unmodified", got.Text, modelAnswer)
	}
}

func TestSynthesizer_Answer_ChatError(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := llm_mocks.NewMockChatCompleter(ctrl)
	cause := errors.New("model not loaded")
	chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", cause)

	_, err := NewSynthesizer(chat).Answer(context.Background(), "Why?", testResults)
	if !errors.Is(err, apperr.ErrChatCompletion) {
		t.Errorf("Answer() error = %v, want ErrChatCompletion", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Answer() error = %v, want cause preserved", err)
	}
}
