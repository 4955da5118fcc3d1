package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"

	"invoicer/internal/invoice"
)

// fakeCompleter replays canned responses in order.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.responses) {
		content = f.responses[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}, nil
}

const cafeNordJSON = `{
  "store_name": "Café Nord",
  "date": "12/03/2025",
  "vat_rate": 20,
  "line_items": [
    {"name": "Espresso", "quantity": 2, "unit_price_incl_vat": 2.10},
    {"name": "Croissant", "quantity": 2, "unit_price_incl_vat": 1.30}
  ]
}`

func TestOpenAIExtractorSendsImage(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"```json\n" + cafeNordJSON + "\n```"}}
	e := NewOpenAIExtractorWithClient(fake, Config{Model: "test-model"})

	rec, err := e.Extract(context.Background(), Image{Data: testPNG(t, 40, 20), Name: "ticket.png"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rec.StoreName != "Café Nord" || len(rec.LineItems) != 2 {
		t.Errorf("Extract() = %q with %d items, want Café Nord with 2", rec.StoreName, len(rec.LineItems))
	}

	if len(fake.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(fake.requests))
	}
	req := fake.requests[0]
	if req.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", req.Model)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("ResponseFormat is not a JSON object")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("Messages = %+v, want system + user", req.Messages)
	}
	parts := req.Messages[1].MultiContent
	if len(parts) != 2 || parts[1].ImageURL == nil {
		t.Fatalf("user message parts = %+v, want text + image", parts)
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image URL = %.40q, want a PNG data URL", parts[1].ImageURL.URL)
	}
}

func TestOpenAIExtractorRetries(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		errs      []error
		wantCalls int
	}{
		{
			name:      "missing line items then valid",
			responses: []string{`{"store_name": "Café Nord"}`, cafeNordJSON},
			wantCalls: 2,
		},
		{
			name:      "prose then valid",
			responses: []string{"Je ne peux pas lire ce ticket.", cafeNordJSON},
			wantCalls: 2,
		},
		{
			name:      "empty then valid",
			responses: []string{"", cafeNordJSON},
			wantCalls: 2,
		},
		{
			name:      "rate limited then valid",
			responses: []string{"", cafeNordJSON},
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{responses: tt.responses, errs: tt.errs}
			e := NewOpenAIExtractorWithClient(fake, Config{MaxRetries: 3})

			rec, err := e.ExtractText(context.Background(), "CAFE NORD")
			if err != nil {
				t.Fatalf("ExtractText() error = %v", err)
			}
			if len(rec.LineItems) != 2 {
				t.Errorf("line items = %d, want 2", len(rec.LineItems))
			}
			if len(fake.requests) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(fake.requests), tt.wantCalls)
			}
		})
	}
}

func TestOpenAIExtractorErrors(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		errs      []error
		want      error
		wantCalls int
	}{
		{
			name:      "structural every time",
			responses: []string{`{}`, `{}`, `{}`},
			want:      invoice.ErrStructuralInput,
			wantCalls: 3,
		},
		{
			name:      "invalid key is not retried",
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
			want:      ErrInvalidCredentials,
			wantCalls: 1,
		},
		{
			name: "quota exhausted",
			errs: []error{
				&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
				&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
				&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
			},
			want:      ErrQuotaExceeded,
			wantCalls: 3,
		},
		{
			name:      "network failure",
			errs:      []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
			want:      ErrExtractionFailed,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{responses: tt.responses, errs: tt.errs}
			e := NewOpenAIExtractorWithClient(fake, Config{MaxRetries: 3})

			_, err := e.ExtractText(context.Background(), "CAFE NORD")
			if !errors.Is(err, tt.want) {
				t.Errorf("ExtractText() error = %v, want %v", err, tt.want)
			}
			var extractErr *ExtractionError
			if !errors.As(err, &extractErr) {
				t.Errorf("ExtractText() error is %T, want *ExtractionError", err)
			}
			if len(fake.requests) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(fake.requests), tt.wantCalls)
			}
		})
	}
}

func TestOpenAIExtractorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeCompleter{responses: []string{cafeNordJSON}}
	e := NewOpenAIExtractorWithClient(fake, Config{})

	_, err := e.ExtractText(ctx, "CAFE NORD")
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("ExtractText() error = %v, want ErrContextCanceled", err)
	}
	if len(fake.requests) != 0 {
		t.Errorf("calls = %d, want 0", len(fake.requests))
	}
}

func TestOpenAIExtractorRejectsNonImage(t *testing.T) {
	fake := &fakeCompleter{}
	e := NewOpenAIExtractorWithClient(fake, Config{})

	_, err := e.Extract(context.Background(), Image{Data: []byte("%PDF-1.4 not an image"), Name: "doc.pdf"})
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedImage", err)
	}
	if len(fake.requests) != 0 {
		t.Errorf("calls = %d, want 0", len(fake.requests))
	}
}

func TestNewOpenAIExtractorRequiresKey(t *testing.T) {
	if _, err := NewOpenAIExtractor("", DefaultConfig()); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewOpenAIExtractor(\"\") error = %v, want ErrMissingAPIKey", err)
	}
}
