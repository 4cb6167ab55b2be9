package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const scheduleHTML = `<html><body>
<div><a href="https://www.afisha.ru/movie/1/">Низкий рейтинг</a>
  <a href="https://www.afisha.ru/msk/cinema/10/">К1</a>
  <a href="https://www.afisha.ru/msk/cinema/11/">К2</a>
  <a href="https://www.afisha.ru/msk/cinema/12/">К3</a></div>
<div><a href="https://www.afisha.ru/movie/2/">Арт-хаус</a>
  <a href="https://www.afisha.ru/msk/cinema/10/">К1</a></div>
<div><a href="https://www.afisha.ru/movie/3/">Хит</a>
  <a href="https://www.afisha.ru/msk/cinema/10/">К1</a>
  <a href="https://www.afisha.ru/msk/cinema/13/">К4</a></div>
<div><a href="https://www.afisha.ru/movie/4/">Без рейтинга</a>
  <a href="https://www.afisha.ru/msk/cinema/14/">К5</a>
  <a href="https://www.afisha.ru/msk/cinema/15/">К6</a></div>
</body></html>`

var ratingHTML = map[string]string{
	"Низкий рейтинг": `<a href="/film/1/votes/"><span>5.100</span> <span>1 000</span></a>`,
	"Арт-хаус":       `<a href="/film/2/votes/"><span>9.000</span> <span>10</span></a>`,
	"Хит":            `<a href="/film/3/votes/"><span>8.400</span> <span>250 000</span></a>`,
}

func newSites(t *testing.T, scheduleStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/msk/schedule_cinema/", func(w http.ResponseWriter, r *http.Request) {
		if scheduleStatus != 0 {
			w.WriteHeader(scheduleStatus)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(scheduleHTML))
	})
	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>" + ratingHTML[r.URL.Query().Get("kp_query")] + "</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, srv *httptest.Server, extra string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "cinemas.json")
	if extra != "" {
		extra += ",\n"
	}
	body := "{\n" + extra +
		`schedule_url: "` + srv.URL + `/msk/schedule_cinema/",
ratings_url: "` + srv.URL + `/index.php",
delay_seconds: 0,
timeout_seconds: 5
}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errb bytes.Buffer
	cmd := newRootCmd(&out, &errb)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func TestCLI_PrintsTopLines(t *testing.T) {
	srv := newSites(t, 0)
	cfg := writeConfig(t, srv, "")

	out, _, err := runCLI(t, "--config", cfg, "--count_cinemas", "2", "--count_popular_movies", "2")
	require.NoError(t, err)

	want := `Фильм "Хит" имеет рейтинг 8.400, его показывают в 2 кинотеатрах` + "\n" +
		`Фильм "Низкий рейтинг" имеет рейтинг 5.100, его показывают в 3 кинотеатрах` + "\n"
	require.Equal(t, want, out)
}

func TestCLI_ZeroCountPrintsAll(t *testing.T) {
	srv := newSites(t, 0)
	cfg := writeConfig(t, srv, "count_popular_movies: 1")

	out, _, err := runCLI(t, "--config", cfg, "--count_popular_movies", "0")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, `Фильм "Арт-хаус" имеет рейтинг 9.000, его показывают в 1 кинотеатрах`, lines[0])
	require.Equal(t, `Фильм "Без рейтинга" имеет рейтинг 0.000, его показывают в 2 кинотеатрах`, lines[3])
}

func TestCLI_ConfigValuesUsedWhenFlagsAbsent(t *testing.T) {
	srv := newSites(t, 0)
	cfg := writeConfig(t, srv, `count_popular_movies: 1, count_cinemas: 3, sort: "none"`)

	out, _, err := runCLI(t, "--config", cfg)
	require.NoError(t, err)
	require.Equal(t, `Фильм "Низкий рейтинг" имеет рейтинг 5.100, его показывают в 3 кинотеатрах`+"\n", out)
}

func TestCLI_Table(t *testing.T) {
	srv := newSites(t, 0)
	cfg := writeConfig(t, srv, "")

	out, _, err := runCLI(t, "--config", cfg, "--table", "--count_popular_movies", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Арт-хаус")
	require.Contains(t, out, "9.000")
	require.NotContains(t, out, "Хит")
}

func TestCLI_NoMoviesLeft(t *testing.T) {
	srv := newSites(t, 0)
	cfg := writeConfig(t, srv, "")

	out, _, err := runCLI(t, "--config", cfg, "--count_cinemas", "100")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCLI_UsageErrors(t *testing.T) {
	cases := [][]string{
		{"--count_popular_movies", "-1"},
		{"--count_cinemas", "-5"},
		{"--sort", "random"},
		{"--count_cinemas", "many"},
		{"--no_such_flag"},
		{"extra-arg"},
	}
	for _, args := range cases {
		_, stderr, err := runCLI(t, args...)
		if err == nil {
			t.Fatalf("期望参数错误：%v", args)
		}
		if got := exitCode(err); got != 2 {
			t.Fatalf("退出码不符合预期：args=%v got=%d err=%v", args, got, err)
		}
		if !strings.Contains(stderr, "参数错误") {
			t.Fatalf("stderr 缺少提示：args=%v stderr=%q", args, stderr)
		}
	}
}

func TestCLI_MissingConfigIsExit1(t *testing.T) {
	_, stderr, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	require.Equal(t, 1, exitCode(err))
	require.Contains(t, stderr, "config_not_found")
}

func TestCLI_HTTPErrorIsHumanized(t *testing.T) {
	srv := newSites(t, http.StatusForbidden)
	cfg := writeConfig(t, srv, "")

	out, stderr, err := runCLI(t, "--config", cfg)
	require.Error(t, err)
	require.Equal(t, 1, exitCode(err))
	require.Empty(t, out)
	require.Contains(t, stderr, "HTTP 403")
	require.Contains(t, stderr, "afisha")
}
