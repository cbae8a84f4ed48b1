package lumina

import (
	"context"
	"strings"
)

type tagsKey struct{}
type metadataKey struct{}

// ContextWithTags returns a context carrying ambient tags. Every span started
// under that context records them in addition to tags passed at the call
// site. Blank tags are dropped.
func ContextWithTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
	}
	if len(cleaned) == 0 {
		return ctx
	}
	merged := append(TagsFromContext(ctx), cleaned...)
	return context.WithValue(ctx, tagsKey{}, merged)
}

// TagsFromContext returns a copy of the ambient tags stored in ctx, or nil.
func TagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	tags, ok := ctx.Value(tagsKey{}).([]string)
	if !ok || len(tags) == 0 {
		return nil
	}
	return append([]string(nil), tags...)
}

// ContextWithMetadata returns a context carrying ambient metadata entries,
// merged over any already present (later keys win). Every span started under
// that context records them; call-site metadata wins on key conflicts.
func ContextWithMetadata(ctx context.Context, metadata map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(metadata) == 0 {
		return ctx
	}
	merged := MetadataFromContext(ctx)
	if merged == nil {
		merged = make(map[string]any, len(metadata))
	}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		merged[key] = value
	}
	return context.WithValue(ctx, metadataKey{}, merged)
}

// MetadataFromContext returns a copy of the ambient metadata stored in ctx,
// or nil.
func MetadataFromContext(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	metadata, ok := ctx.Value(metadataKey{}).(map[string]any)
	if !ok || len(metadata) == 0 {
		return nil
	}
	copied := make(map[string]any, len(metadata))
	for key, value := range metadata {
		copied[key] = value
	}
	return copied
}
