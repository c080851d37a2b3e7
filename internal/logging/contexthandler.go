package logging

import (
	"context"
	"log/slog"
	"maps"
)

// ContextProvider returns the attributes of the replay being worked on:
// name, stored id and console turn.
type ContextProvider func() []slog.Attr

// ContextHandler stamps every record with the provider's attributes. A key
// the record or logger already carries is left alone, so a generator line
// logged with its own turn keeps it even while the console sits elsewhere.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
	// bound holds keys added through WithAttrs in the current group.
	bound map[string]bool
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.next.Handle(ctx, r)
	}
	replayAttrs := h.provider()
	if len(replayAttrs) == 0 {
		return h.next.Handle(ctx, r)
	}

	taken := maps.Clone(h.bound)
	if taken == nil {
		taken = make(map[string]bool)
	}
	r.Attrs(func(a slog.Attr) bool {
		taken[a.Key] = true
		return true
	})
	for _, a := range replayAttrs {
		if !taken[a.Key] {
			r.AddAttrs(a)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := maps.Clone(h.bound)
	if bound == nil {
		bound = make(map[string]bool, len(attrs))
	}
	for _, a := range attrs {
		bound[a.Key] = true
	}
	return &ContextHandler{next: h.next.WithAttrs(attrs), provider: h.provider, bound: bound}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	// Replay attrs land inside the new group, next to nothing bound yet.
	return &ContextHandler{next: h.next.WithGroup(name), provider: h.provider}
}
