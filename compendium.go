package simse

import (
	"context"
	"fmt"
	"strings"
)

// CompendiumOptions controls how Compendium builds its summary volume.
type CompendiumOptions struct {
	// Topic tags the new compendium volume; defaults to the first source's
	// topic if empty.
	Topic string
	// DeleteOriginals removes the source volumes after the summary is
	// inserted, once the summary embedding has been produced.
	DeleteOriginals bool
}

// Compendium fetches the volumes named by ids, asks the configured
// Generator to summarize their text, embeds and stores the summary as a
// new volume tagged source=compendium with a sourceIds metadata entry
// listing the originals, and (if requested) deletes the sources — all
// through the engine's normal lock-protected operations, per
// SPEC_FULL.md §4.10 and §9's "compendium cyclicity" note: the new
// volume references its sources by id but takes no ownership of them.
func (s *Store) Compendium(ctx context.Context, ids []string, opts CompendiumOptions) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("simse: compendium requires at least one id")
	}
	if s.cfg.Generator == nil {
		return "", fmt.Errorf("simse: no Generator configured")
	}
	emb, err := s.requireEmbedder()
	if err != nil {
		return "", err
	}

	sources := make([]Volume, 0, len(ids))
	for _, id := range ids {
		v, err := s.engine.GetByID(id)
		if err != nil {
			return "", fmt.Errorf("simse: compendium source %s: %w", id, err)
		}
		sources = append(sources, v)
	}

	var texts []string
	for _, v := range sources {
		texts = append(texts, v.Text)
	}
	prompt := "Summarize the following passages into one coherent passage:\n\n" + strings.Join(texts, "\n\n---\n\n")

	summary, err := s.cfg.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("simse: generate: %w", err)
	}

	vec, err := emb.Embed(ctx, summary)
	if err != nil {
		return "", fmt.Errorf("simse: embed: %w", err)
	}

	topic := opts.Topic
	if topic == "" && len(sources) > 0 {
		topic = sources[0].Topic()
	}
	sourceIDs := make([]string, len(sources))
	for i, v := range sources {
		sourceIDs[i] = v.ID
	}
	metadata := map[string]string{
		"topic":     topic,
		"source":    "compendium",
		"sourceIds": strings.Join(sourceIDs, ","),
	}

	newID, err := s.engine.Add(ctx, summary, vec, metadata)
	if err != nil {
		return "", fmt.Errorf("simse: compendium insert: %w", err)
	}

	if opts.DeleteOriginals {
		if _, err := s.engine.DeleteBatch(ctx, sourceIDs); err != nil {
			return newID, fmt.Errorf("simse: compendium delete originals: %w", err)
		}
	}

	return newID, nil
}
