package services_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukex/oneapi/pkg/binding"
	"github.com/dukex/oneapi/pkg/broker"
	"github.com/dukex/oneapi/pkg/comfy"
	"github.com/dukex/oneapi/pkg/config"
	"github.com/dukex/oneapi/pkg/convert"
	"github.com/dukex/oneapi/pkg/media"
	"github.com/dukex/oneapi/pkg/persistence/file"
	"github.com/dukex/oneapi/pkg/schema"
	"github.com/dukex/oneapi/pkg/services"
)

const objectInfo = `{
	"LoadImage": {
		"display_name": "Load Image",
		"input": {"required": {"image": [["example.png"], {"image_upload": true}]}},
		"input_order": {"required": ["image"]}
	},
	"SaveImage": {
		"display_name": "Save Image",
		"input": {"required": {"images": ["IMAGE"], "filename_prefix": ["STRING", {"default": "ComfyUI"}]}},
		"input_order": {"required": ["images", "filename_prefix"]}
	}
}`

// fakeEngine is a job engine that accepts prompts and reports the
// configured history once the prompt has been polled pollsUntilDone times.
type fakeEngine struct {
	server *httptest.Server

	mu      sync.Mutex
	prompts []map[string]any
	history string

	uploads        atomic.Int32
	polls          atomic.Int32
	pollsUntilDone int32
	rejectPrompt   atomic.Bool
}

func newFakeEngine(t *testing.T, history string) *fakeEngine {
	t.Helper()

	engine := &fakeEngine{history: history, pollsUntilDone: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/image", func(w http.ResponseWriter, r *http.Request) {
		engine.uploads.Add(1)

		if _, _, err := r.FormFile("image"); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		_, _ = w.Write([]byte(`{"name": "uploaded.png", "subfolder": "", "type": "input"}`))
	})
	mux.HandleFunc("POST /prompt", func(w http.ResponseWriter, r *http.Request) {
		if engine.rejectPrompt.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid prompt"}`))

			return
		}

		body, _ := io.ReadAll(r.Body)

		var payload map[string]any
		_ = json.Unmarshal(body, &payload)

		engine.mu.Lock()
		engine.prompts = append(engine.prompts, payload)
		engine.mu.Unlock()

		_, _ = w.Write([]byte(`{"prompt_id": "p-1", "number": 1}`))
	})
	mux.HandleFunc("GET /history/{id}", func(w http.ResponseWriter, _ *http.Request) {
		if engine.polls.Add(1) < engine.pollsUntilDone || engine.history == "" {
			_, _ = w.Write([]byte(`{}`))

			return
		}

		_, _ = w.Write([]byte(`{"p-1": ` + engine.history + `}`))
	})
	mux.HandleFunc("GET /api/object_info", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(objectInfo))
	})

	engine.server = httptest.NewServer(mux)
	t.Cleanup(engine.server.Close)

	return engine
}

func (e *fakeEngine) submitted() []map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]map[string]any(nil), e.prompts...)
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(server.Close)

	return server
}

type stack struct {
	engine    *fakeEngine
	execution *services.Execution
	workflows *services.Workflow
}

func newStack(t *testing.T, engine *fakeEngine, policy config.Policy) stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := comfy.NewClient(engine.server.URL, logger)
	store := file.NewPersistence(t.TempDir())
	converter := convert.NewConverter(schema.NewCatalog(client, nil, logger), logger)
	binder := binding.NewBinder(policy.MediaUploadTypes, media.NewResolver(client, logger, media.WithTempDir(t.TempDir())), logger)
	b := broker.New(client, logger, broker.WithPollInterval(time.Millisecond))

	execution := services.NewExecution(services.NewSource(store, nil), converter, binder, b, policy, nil, logger)

	require.NotNil(t, execution)

	return stack{
		engine:    engine,
		execution: execution,
		workflows: services.NewWorkflow(store, logger),
	}
}
