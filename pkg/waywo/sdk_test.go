package waywo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/waywo/internal/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOptionsApply(t *testing.T) {
	gen, err := NewGenerator(
		WithBaseURL("http://forum.test/"),
		WithSession("agent/1.0", "tok", Cookie{Name: "bb_sessionhash", Value: "abc"}),
		WithConcurrency(3),
		WithPoliteness(time.Second, 10),
		WithRatingWeight(5, "Winner"),
		WithRatingWeight(1, "Funny"),
		WithContentWeight(2, []string{"IMG"}, []string{"PNG"}),
		WithDefaults(-2, 0),
		WithFileCache(t.TempDir()),
		WithLogger(quietLogger),
	)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	cfg := gen.cfg
	if cfg.Forum.BaseURL != "http://forum.test" {
		t.Errorf("base URL = %q", cfg.Forum.BaseURL)
	}
	if cfg.Authentication.UserAgent != "agent/1.0" || len(cfg.Authentication.Cookies) != 1 {
		t.Errorf("auth = %+v", cfg.Authentication)
	}
	if len(cfg.Ratings) != 2 || cfg.RatingValue("Winner") != 5 || cfg.RatingValue("Useful") != -2 {
		t.Errorf("ratings = %+v", cfg.Ratings)
	}
	if len(cfg.Content) != 1 || cfg.Content[0].Tags[0] != "img" || cfg.Content[0].Extensions[0] != ".png" {
		t.Errorf("content = %+v", cfg.Content)
	}
	if !gen.cache || cfg.Cache.Backend != "file" {
		t.Error("file cache not enabled")
	}
}

func TestInvalidOptions(t *testing.T) {
	_, err := NewGenerator(WithConcurrency(0), WithLogger(quietLogger))
	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	messages := map[string]string{
		"2": "[QUOTE=alice;2]Ported my renderer [img]http://i.test/r.gif[/img][/QUOTE]",
		"3": "[QUOTE=bob;3]Inventory UI [img]http://i.test/ui.png[/img][/QUOTE]",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/showthread.php":
			fmt.Fprint(w, `<ol id="posts">`+
				`<li><span class="rating_results" id="rating_1"></span></li>`+
				`<li><span class="rating_results" id="rating_2"><span><img alt="Winner"/><strong>4</strong></span></span></li>`+
				`<li><span class="rating_results" id="rating_3"><span><img alt="Funny"/><strong>2</strong></span></span></li>`+
				`</ol>`)
		case "/ajax.php":
			_ = r.ParseForm()
			fmt.Fprintf(w, "<?xml?>\n<quotes><![CDATA[%s\n]]></quotes>\n\n", messages[r.PostForm.Get("p")])
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gen, err := NewGenerator(WithBaseURL(srv.URL), WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	out := filepath.Join(t.TempDir(), "out.txt")
	res, err := gen.Generate(context.Background(), 5, out, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if res.Pages != 1 || res.Posts != 2 || len(res.Highlights) != 2 {
		t.Fatalf("result = %+v", res)
	}
	first := res.Highlights[0]
	if first.PostID != 2 || first.Author != "alice" || first.Score != 8 {
		t.Errorf("first highlight = %+v", first)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := messages["2"] + "\n\n" + messages["3"] + "\n\n"; string(data) != want {
		t.Errorf("output = %q", data)
	}

	if got := gen.Stats()["waywo_highlights_selected_total"]; got != 2 {
		t.Errorf("highlights stat = %v", got)
	}
}
