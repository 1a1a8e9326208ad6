package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 2, InitialBackoff: time.Millisecond}
}

func TestEmbed_FlattensNewlines(t *testing.T) {
	t.Parallel()

	var got string
	svc := NewServiceWithFunc(func(_ context.Context, text string) ([]float64, error) {
		got = text
		return []float64{1, 2}, nil
	}, 1, testPolicy(), zerolog.Nop())

	if _, err := svc.Embed(context.Background(), "line one\nline two"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "\n") {
		t.Fatalf("newlines not flattened: %q", got)
	}
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc := NewServiceWithFunc(func(_ context.Context, _ string) ([]float64, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("rate limited")
		}
		return []float64{0.5}, nil
	}, 1, testPolicy(), zerolog.Nop())

	vec, err := svc.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1 || calls.Load() != 2 {
		t.Fatalf("expected success on second call, got vec=%v calls=%d", vec, calls.Load())
	}
}

func TestEmbedTexts_SkipsFailuresAndStaysAligned(t *testing.T) {
	t.Parallel()

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("event %d", i)
	}

	// Texts 4 and 11 fail on every attempt.
	svc := NewServiceWithFunc(func(_ context.Context, text string) ([]float64, error) {
		if text == "event 4" || text == "event 11" {
			return nil, errors.New("persistent failure")
		}
		var idx int
		fmt.Sscanf(text, "event %d", &idx)
		return []float64{float64(idx), 1}, nil
	}, 4, testPolicy(), zerolog.Nop())

	matrix, valid, err := svc.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := matrix.Dims()
	if rows != 18 || len(valid) != 18 {
		t.Fatalf("expected 18 rows and indices, got %d and %d", rows, len(valid))
	}

	for i, idx := range valid {
		if idx == 4 || idx == 11 {
			t.Fatalf("failed index %d survived", idx)
		}
		if i > 0 && valid[i-1] >= idx {
			t.Fatalf("indices not in input order: %v", valid)
		}
		// Row i must hold the embedding for input index valid[i].
		if got := matrix.At(i, 0); got != float64(idx) {
			t.Fatalf("row %d misaligned: got %v, want %d", i, got, idx)
		}
	}
}

func TestEmbedTexts_AllFailuresIsAnError(t *testing.T) {
	t.Parallel()

	svc := NewServiceWithFunc(func(_ context.Context, _ string) ([]float64, error) {
		return nil, errors.New("down")
	}, 2, testPolicy(), zerolog.Nop())

	if _, _, err := svc.EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when every embedding fails")
	}
}

func TestEmbedTexts_EmptyInputIsAnError(t *testing.T) {
	t.Parallel()

	svc := NewServiceWithFunc(func(_ context.Context, _ string) ([]float64, error) {
		return []float64{1}, nil
	}, 1, testPolicy(), zerolog.Nop())

	if _, _, err := svc.EmbedTexts(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
