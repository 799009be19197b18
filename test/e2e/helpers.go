//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/textbook-vault/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 768

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T           *testing.T
	Ctx         context.Context
	PostgresC   *testutil.PostgresContainer
	Pool        *pgxpool.Pool
	Embeddings  *httptest.Server
	BinaryDir   string
	WorkDir     string
	ExtraEnv    []string
	EmbedCalls  int
	failEmbedAt int
}

// SetupE2EEnv starts Postgres with the schema applied and a fake embeddings server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	workDir, err := os.MkdirTemp("", "vault-e2e-work-*")
	if err != nil {
		t.Fatalf("failed to create work dir: %v", err)
	}

	env := &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		Pool:      pool,
		WorkDir:   workDir,
	}
	env.Embeddings = httptest.NewServer(http.HandlerFunc(env.serveEmbeddings))

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Embeddings != nil {
		e.Embeddings.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
	if e.WorkDir != "" {
		os.RemoveAll(e.WorkDir)
	}
}

// BuildBinaries builds the vault and vaultcheck binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "vault-e2e-bin-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"vault", "vaultcheck"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// Env returns the VAULT_* environment pointing at the test containers
func (e *E2ETestEnv) Env() []string {
	env := append(os.Environ(),
		"VAULT_STORE=postgres",
		"VAULT_DATABASE_URL="+e.PostgresC.ConnectionString(),
		"VAULT_EMBEDDING_PROVIDER=openai",
		"VAULT_EMBEDDING_BASE_URL="+e.Embeddings.URL+"/v1",
		"VAULT_EMBEDDING_API_KEY=test",
		fmt.Sprintf("VAULT_EMBEDDING_DIMENSIONS=%d", embeddingDims),
		"VAULT_LOG_LEVEL=warn",
		"VAULT_SENTRY_DSN=",
	)
	return append(env, e.ExtraEnv...)
}

// Run runs one of the built binaries in the work dir
func (e *E2ETestEnv) Run(binary string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, binary), args...)
	cmd.Dir = e.WorkDir
	cmd.Env = e.Env()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// CountRows counts rows in the knowledge table
func (e *E2ETestEnv) CountRows(where string, args ...any) int {
	query := "SELECT count(*) FROM pcmb_knowledge"
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := e.Pool.QueryRow(e.Ctx, query, args...).Scan(&n); err != nil {
		e.T.Fatalf("failed to count rows: %v", err)
	}
	return n
}

// WritePDF writes a PDF with one page per entry of pages into the work dir
func (e *E2ETestEnv) WritePDF(name string, pages []string) string {
	path := filepath.Join(e.WorkDir, name)
	if err := os.WriteFile(path, buildPDF(pages), 0o644); err != nil {
		e.T.Fatalf("failed to write pdf: %v", err)
	}
	return path
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// serveEmbeddings answers the OpenAI embeddings endpoint with a bag-of-words vector
func (e *E2ETestEnv) serveEmbeddings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/embeddings" {
		http.NotFound(w, r)
		return
	}

	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e.EmbedCalls++
	if e.failEmbedAt > 0 && e.EmbedCalls == e.failEmbedAt {
		http.Error(w, `{"error":{"message":"model overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
		return
	}

	data := make([]map[string]any, 0, len(req.Input))
	for i, text := range req.Input {
		data = append(data, map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": bagOfWords(text),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  req.Model,
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
	})
}

// bagOfWords hashes lower-cased words into a normalised vector
func bagOfWords(text string) []float32 {
	v := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,:;!?")))
		v[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / math.Sqrt(norm))
	}
	return v
}

// buildPDF renders a minimal PDF 1.4 document with a single Helvetica text line per page
func buildPDF(pages []string) []byte {
	var objects []string
	n := len(pages)
	// 1 catalog, 2 pages, 3 font, then a page and a content stream per page
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escaped)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
