package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/answer"
	"github.com/a-h/pdfqa/embedding"
	"github.com/a-h/pdfqa/extract"
	"github.com/a-h/pdfqa/llmtest"
	"github.com/google/go-cmp/cmp"
)

const testKey = "0123456789abcdef0123456789abcdef"

var log = slog.New(slog.NewJSONHandler(io.Discard, nil))

type fixture struct {
	pipeline *Pipeline
	embedder *llmtest.Embedder
	llm      *llmtest.Model
	dir      string
}

func newFixture(t *testing.T, dir string) fixture {
	t.Helper()
	return newFixtureWithDimension(t, dir, 4096)
}

func newFixtureWithDimension(t *testing.T, dir string, dimension int) fixture {
	t.Helper()
	if dir == "" {
		dir = filepath.Join(t.TempDir(), "index")
	}
	f := fixture{
		embedder: llmtest.NewEmbedder(dimension),
		llm:      &llmtest.Model{Respond: llmtest.Extractive(answer.NotInText)},
		dir:      dir,
	}
	synth, err := answer.New(log, f.llm, answer.MustNewTemplate(answer.DefaultTemplate))
	if err != nil {
		t.Fatalf("failed to create synthesizer: %v", err)
	}
	f.pipeline, err = New(log, Options{
		IndexDir:     dir,
		ChunkSize:    1000,
		ChunkOverlap: 100,
		K:            10,
		IndexKey:     testKey,
		Compress:     true,
	}, extract.New(log), embedding.New(log, f.embedder, embedding.WithModel("bag-of-words"), embedding.WithRetries(0)), synth)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return f
}

func text(name, s string) extract.Document {
	return extract.Document{Name: name, Data: []byte(s)}
}

func TestScenarios(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	t.Run("asking before ingestion reports a missing index", func(t *testing.T) {
		_, err := f.pipeline.Ask(ctx, "What color is the sky?")
		if !errors.Is(err, pdfqa.ErrIndexNotFound) {
			t.Fatalf("expected ErrIndexNotFound, got %v", err)
		}
		if stage, _ := pdfqa.StageOf(err); stage != pdfqa.StageLoad {
			t.Errorf("expected the load stage, got %q", stage)
		}
	})
	t.Run("a short document is a single chunk", func(t *testing.T) {
		r, err := f.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue. Grass is green.")}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := IngestResult{
			BuildID:   r.BuildID,
			Documents: []string{"sky.txt"},
			Pages:     1,
			Chunks:    1,
		}
		if diff := cmp.Diff(expected, r); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("questions are answered from the document", func(t *testing.T) {
		r, err := f.pipeline.Ask(ctx, "What color is the sky?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Context != "The sky is blue. Grass is green." {
			t.Errorf("unexpected context %q", r.Context)
		}
		if !strings.Contains(string(r.Answer), "blue") {
			t.Errorf("expected the answer to mention blue, got %q", r.Answer)
		}
		if len(r.Sources) != 1 || r.Sources[0].Position != 0 {
			t.Errorf("unexpected sources %+v", r.Sources)
		}
	})
	t.Run("unrelated questions get the fallback", func(t *testing.T) {
		if _, err := f.pipeline.Ingest(ctx, []extract.Document{text("cooking.txt", "Boil the pasta for ten minutes. Add salt to the water.")}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r, err := f.pipeline.Ask(ctx, "How do black holes emit Hawking radiation?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Answer != answer.NotInText {
			t.Errorf("expected %q, got %q", answer.NotInText, r.Answer)
		}
	})
}

func TestIngestReplacesIndex(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	if _, err := f.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.pipeline.Ingest(ctx, []extract.Document{text("grass.txt", "Grass is green.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := f.pipeline.Ask(ctx, "What color is the sky?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Context != "Grass is green." {
		t.Errorf("expected only the latest corpus, got %q", r.Context)
	}
}

func TestIngestFailureKeepsPreviousIndex(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	first, err := f.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue.")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.embedder.Err = errors.New("quota exceeded")
	f.embedder.FailAfter = 0
	_, err = f.pipeline.Ingest(ctx, []extract.Document{text("grass.txt", "Grass is green.")}, nil)
	if !errors.Is(err, pdfqa.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if stage, _ := pdfqa.StageOf(err); stage != pdfqa.StageEmbed {
		t.Errorf("expected the embed stage, got %q", stage)
	}

	status, err := f.pipeline.Status()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.BuildID != first.BuildID {
		t.Errorf("expected build %q to remain, got %q", first.BuildID, status.BuildID)
	}
}

func TestIndexIsSharedThroughTheDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	writer := newFixture(t, dir)
	reader := newFixture(t, dir)
	ctx := context.Background()

	if _, err := writer.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := reader.pipeline.Ask(ctx, "What color is the sky?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Context != "The sky is blue." {
		t.Errorf("unexpected context %q", r.Context)
	}

	if _, err = writer.pipeline.Ingest(ctx, []extract.Document{text("grass.txt", "Grass is green.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err = reader.pipeline.Ask(ctx, "What color is the grass?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Context != "Grass is green." {
		t.Errorf("expected the reader to pick up the new build, got %q", r.Context)
	}
}

func TestAskWithIncompatibleEmbeddingsReportsCorruptIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	writer := newFixtureWithDimension(t, dir, 64)
	reader := newFixtureWithDimension(t, dir, 32)
	ctx := context.Background()

	if _, err := writer.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := reader.pipeline.Ask(ctx, "What color is the sky?")
	if !errors.Is(err, pdfqa.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
	if errors.Is(err, pdfqa.ErrInvalidArgument) {
		t.Errorf("expected the index to be blamed, not the question: %v", err)
	}
	if len(reader.llm.Prompts()) != 0 {
		t.Error("expected the model not to be called")
	}
}

func TestIngestProgress(t *testing.T) {
	f := newFixture(t, "")
	var last, total int
	r, err := f.pipeline.Ingest(context.Background(), []extract.Document{
		text("long.txt", strings.Repeat("All work and no play makes Jack a dull boy. ", 100)),
	}, func(done, n int) {
		last, total = done, n
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", r.Chunks)
	}
	if last != r.Chunks || total != r.Chunks {
		t.Errorf("expected final progress %d/%d, got %d/%d", r.Chunks, r.Chunks, last, total)
	}
}

func TestEmptyCorpus(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	r, err := f.pipeline.Ingest(ctx, []extract.Document{text("empty.txt", "")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Chunks != 0 {
		t.Errorf("expected no chunks, got %d", r.Chunks)
	}
	a, err := f.pipeline.Ask(ctx, "Anything?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Answer != answer.NotInText || a.Context != "" {
		t.Errorf("expected the fallback with no context, got %q with context %q", a.Answer, a.Context)
	}
	if f.embedder.Calls() != 0 || len(f.llm.Prompts()) != 0 {
		t.Errorf("expected no provider calls, got %d embedding and %d LLM calls", f.embedder.Calls(), len(f.llm.Prompts()))
	}
}

func TestErrorsAreAnnotatedWithStage(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	tests := []struct {
		name          string
		run           func() error
		expectedErr   error
		expectedStage pdfqa.Stage
	}{
		{
			name: "no documents",
			run: func() error {
				_, err := f.pipeline.Ingest(ctx, nil, nil)
				return err
			},
			expectedErr:   pdfqa.ErrInvalidArgument,
			expectedStage: pdfqa.StageExtract,
		},
		{
			name: "unreadable document",
			run: func() error {
				_, err := f.pipeline.Ingest(ctx, []extract.Document{text("broken.pdf", "not a pdf")}, nil)
				return err
			},
			expectedErr:   pdfqa.ErrExtraction,
			expectedStage: pdfqa.StageExtract,
		},
		{
			name: "empty question",
			run: func() error {
				_, err := f.pipeline.Ask(ctx, "  ")
				return err
			},
			expectedErr:   pdfqa.ErrInvalidArgument,
			expectedStage: pdfqa.StageRetrieve,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.run()
			if !errors.Is(err, test.expectedErr) {
				t.Errorf("expected %v, got %v", test.expectedErr, err)
			}
			if stage, _ := pdfqa.StageOf(err); stage != test.expectedStage {
				t.Errorf("expected stage %q, got %q", test.expectedStage, stage)
			}
		})
	}
}

func TestNewRejectsInvalidChunking(t *testing.T) {
	f := newFixture(t, "")
	_, err := New(log, Options{IndexDir: f.dir, ChunkSize: 100, ChunkOverlap: 100}, f.pipeline.extractor, f.pipeline.gateway, f.pipeline.synth)
	if !errors.Is(err, pdfqa.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRetrieveSkipsTheModel(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	if _, err := f.pipeline.Ingest(ctx, []extract.Document{text("sky.txt", "The sky is blue.")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hits, err := f.pipeline.Retrieve(ctx, "sky")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "The sky is blue." {
		t.Errorf("unexpected hits %+v", hits)
	}
	if len(f.llm.Prompts()) != 0 {
		t.Error("expected the model not to be called")
	}
}
