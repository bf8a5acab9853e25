package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"folio/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNotFound, "library", "lookup", "library 7 missing", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"library", "lookup", "library 7 missing"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker default, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"nil", nil, ""},
		{"validation", services.Wrap(services.ErrValidation, "scan", "progress", "bad", nil), services.KindValidation},
		{"not found", services.Wrap(services.ErrNotFound, "library", "lookup", "", nil), services.KindNotFound},
		{"conversion", services.Wrap(services.ErrConversion, "library", "map", "", nil), services.KindConversion},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "", "", nil), services.KindConfiguration},
		{"canceled", context.Canceled, services.KindCanceled},
		{"deadline wrapped", fmt.Errorf("walk: %w", context.DeadlineExceeded), services.KindCanceled},
		{"canceled beats marker", services.Wrap(services.ErrNotFound, "library", "lookup", "", context.Canceled), services.KindCanceled},
		{"plain", errors.New("io"), services.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithScanID(ctx, "scan-1")
	ctx = services.WithLibraryID(ctx, 42)
	ctx = services.WithNode(ctx, "filter-extensions")
	ctx = services.WithRequestID(ctx, "req")

	if id, ok := services.ScanIDFromContext(ctx); !ok || id != "scan-1" {
		t.Fatalf("scan id = %q %v", id, ok)
	}
	if id, ok := services.LibraryIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("library id = %d %v", id, ok)
	}
	if node, ok := services.NodeFromContext(ctx); !ok || node != "filter-extensions" {
		t.Fatalf("node = %q %v", node, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req" {
		t.Fatalf("request id = %q %v", rid, ok)
	}

	if services.WithScanID(context.Background(), "") != context.Background() {
		t.Fatal("empty scan id should not annotate context")
	}
	if _, ok := services.LibraryIDFromContext(context.Background()); ok {
		t.Fatal("expected no library id on bare context")
	}
}
