package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/cinemas/internal/app"
	"github.com/John-Robertt/cinemas/internal/app/run"
	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/present"
	"github.com/John-Robertt/cinemas/internal/provider/afisha"
	"github.com/John-Robertt/cinemas/internal/provider/kinopoisk"
)

// usageError 表示参数错误（退出码 2）。
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

type rootFlags struct {
	configPath   string
	countPopular int
	countCinemas int
	sort         string
	table        bool
	verbose      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl rootFlags

	cmd := &cobra.Command{
		Use:   "cinemas",
		Short: "Поиск популярных фильмов, идущих в прокате",
		Long: `按排片页上的影院数与 kinopoisk 评分，列出正在上映的热门影片。

配置文件（可选，JSON5）：默认读取当前目录下的 cinemas.json；
命令行参数（显式指定时）优先于配置文件。`,
		Args: func(c *cobra.Command, args []string) error {
			if err := cobra.NoArgs(c, args); err != nil {
				fmt.Fprintf(stderr, "参数错误：%v\n\n%s", err, c.UsageString())
				return &usageError{err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			initSlog(stderr, fl.verbose)

			if err := validateFlags(cmd, fl); err != nil {
				fmt.Fprintf(stderr, "参数错误：%v\n\n%s", err, cmd.UsageString())
				return &usageError{err: err}
			}

			cwd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
				return err
			}

			eff, err := config.LoadEffective(cwd, config.CLIArgs{
				ConfigPath:            fl.configPath,
				CountPopularMovies:    fl.countPopular,
				CountPopularMoviesSet: cmd.Flags().Changed("count_popular_movies"),
				CountCinemas:          fl.countCinemas,
				CountCinemasSet:       cmd.Flags().Changed("count_cinemas"),
				Sort:                  fl.sort,
				SortSet:               cmd.Flags().Changed("sort"),
			})
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return err
			}
			return runCinemas(cmd.Context(), eff, fl, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.IntVar(&fl.countPopular, "count_popular_movies", config.DefaultCountPopularMovies, "количество популярных фильмов для вывода в консоль (0 = все)")
	f.IntVar(&fl.countCinemas, "count_cinemas", config.DefaultCountCinemas, "минимальное количество кинотеатров, в которых идёт фильм")
	f.StringVar(&fl.configPath, "config", "", "配置文件路径（默认 ./"+config.DefaultFileName+"，可选）")
	f.StringVar(&fl.sort, "sort", "rating", "输出顺序：rating（评分降序）| none（排片页顺序）")
	f.BoolVar(&fl.table, "table", false, "以表格输出")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "输出调试日志")

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintf(stderr, "参数错误：%v\n\n%s", err, c.UsageString())
		return &usageError{err: err}
	})
	return cmd
}

// validateFlags 只检查命令行本身（退出码 2）；配置文件的问题由 config 报告（退出码 1）。
func validateFlags(cmd *cobra.Command, fl rootFlags) error {
	if fl.countPopular < 0 {
		return fmt.Errorf("--count_popular_movies 不能为负数：%d", fl.countPopular)
	}
	if fl.countCinemas < 0 {
		return fmt.Errorf("--count_cinemas 不能为负数：%d", fl.countCinemas)
	}
	if cmd.Flags().Changed("sort") {
		if _, err := app.ParseSortMode(fl.sort); err != nil {
			return err
		}
	}
	return nil
}

func runCinemas(ctx context.Context, eff config.EffectiveConfig, fl rootFlags, stdout, stderr io.Writer) error {
	src := run.Sources{
		Schedule: afisha.Provider{ScheduleURL: eff.ScheduleURL},
		Rating:   kinopoisk.Provider{SearchURL: eff.RatingsURL},
	}

	var obs run.Observer
	if w, ok := pickProgressWriter(stderr); ok {
		obs = newProgressUI(w)
	}

	res, err := run.ExecuteWithObserver(ctx, eff, src, obs)
	if err != nil {
		fmt.Fprintln(stderr, humanizeRunError(err))
		return err
	}

	if len(res.Movies) == 0 {
		slog.Warn("没有符合条件的影片", "scraped", res.Scraped, "min_cinemas", eff.CountCinemas)
		return nil
	}
	if fl.table {
		return present.WriteTable(stdout, res.Movies, eff.CountPopularMovies)
	}
	return present.WriteLines(stdout, res.Movies, eff.CountPopularMovies)
}

func initSlog(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTTYWriter(w),
	})))
}

func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTTY(f)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// pickProgressWriter 只在交互终端启用进度输出；进度永远不写 stdout（stdout 只留给结果）。
func pickProgressWriter(stderr io.Writer) (io.Writer, bool) {
	if isTTYWriter(stderr) {
		return stderr, true
	}
	return nil, false
}
