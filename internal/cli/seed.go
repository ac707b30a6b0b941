package cli

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin/binding"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/user/moviecatalog/internal/embedding"
	"github.com/user/moviecatalog/internal/metrics"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"gopkg.in/yaml.v3"
)

//go:embed sample_movies.yaml
var sampleMovies []byte

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a catalog of movies through the write path",
	Long: `Load movies from a YAML file (or the built-in sample catalog) through
the same create path as the API, so search text and embeddings are derived
for every record. Movies whose imdb_id already exists are skipped.

Examples:
  moviectl seed
  moviectl seed -f ./catalog.yaml`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML catalog file (default is the built-in sample)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	data := sampleMovies
	if seedFile != "" {
		var err error
		data, err = os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	movies, err := parseCatalog(data)
	if err != nil {
		return err
	}

	store, closeStore, err := repository.OpenStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return err
	}
	m := metrics.New(nil)
	svc := service.NewMovieService(store, embedding.NewGenerator(provider, cfg.Embedding.Dimension, m), m)

	res, err := seedMovies(cmd.Context(), svc, movies, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %d, skipped %d, total movies: %d\n", res.Created, res.Skipped, res.Total)
	return nil
}

// catalogFile YAML 目录文件
type catalogFile struct {
	Movies []map[string]any `yaml:"movies"`
}

// parseCatalog 解析 YAML 目录
// 字段名与 API 的 JSON 请求体一致，经 JSON 转换后复用请求结构和校验规则
func parseCatalog(data []byte) ([]model.MovieCreate, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	movies := make([]model.MovieCreate, 0, len(file.Movies))
	for i, raw := range file.Movies {
		buf, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("movie #%d: %w", i+1, err)
		}
		var req model.MovieCreate
		if err := json.Unmarshal(buf, &req); err != nil {
			return nil, fmt.Errorf("movie #%d: %w", i+1, err)
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			return nil, fmt.Errorf("movie #%d (%s): %w", i+1, req.Title, err)
		}
		movies = append(movies, req)
	}
	return movies, nil
}

type seedResult struct {
	Created int
	Skipped int
	Total   int64
}

// seedMovies 逐条创建电影，已存在的 imdb_id 跳过
func seedMovies(ctx context.Context, svc *service.MovieService, movies []model.MovieCreate, out io.Writer) (seedResult, error) {
	var res seedResult

	bar := progressbar.NewOptions(len(movies),
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Seeding[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)

	for i := range movies {
		req := &movies[i]
		if req.IMDbID != nil && *req.IMDbID != "" {
			_, err := svc.GetByIMDbID(ctx, *req.IMDbID)
			switch {
			case err == nil:
				res.Skipped++
				_ = bar.Add(1)
				continue
			case !errors.Is(err, service.ErrNotFound):
				return res, err
			}
		}

		if _, err := svc.Create(ctx, req); err != nil {
			return res, fmt.Errorf("failed to create %q: %w", req.Title, err)
		}
		res.Created++
		_ = bar.Add(1)
	}

	page, err := svc.List(ctx, model.MovieFilter{Limit: 1})
	if err != nil {
		return res, err
	}
	res.Total = page.Total
	return res, nil
}
