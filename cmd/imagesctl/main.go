// Command imagesctl is a small operator CLI over the cfimages client.
//
// Credentials come from the environment (optionally via .env):
// CF_IMAGES_API_KEY, CF_IMAGES_ACCOUNT_ID, and CF_IMAGES_BASE_URL to
// target a non-production endpoint such as images-local.
//
// Usage:
//
//	imagesctl upload <id> <file>
//	imagesctl list [page] [per_page]
//	imagesctl get <id>
//	imagesctl rm <id>
//	imagesctl variants
//	imagesctl stats
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/leca/cfimages"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	client, err := cfimages.New(cfimages.ClientOptions{
		APIKey:      os.Getenv("CF_IMAGES_API_KEY"),
		AccountID:   os.Getenv("CF_IMAGES_ACCOUNT_ID"),
		BaseURL:     os.Getenv("CF_IMAGES_BASE_URL"),
		Logger:      cfimages.NewZerologLogger(zl),
		LogRequests: true,
		LogErrors:   true,
	})
	if err != nil {
		zl.Fatal().Err(err).Msg("configure client")
	}

	if len(os.Args) < 2 {
		zl.Fatal().Msg("missing command: upload | list | get | rm | variants | stats")
	}

	ctx := context.Background()
	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		zl.Fatal().Err(err).Msg("command failed")
	}
}

func run(ctx context.Context, client *cfimages.Client, cmd string, args []string) error {
	switch cmd {
	case "upload":
		if len(args) != 2 {
			return fmt.Errorf("usage: upload <id> <file>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		resp, err := client.UploadImage(ctx, cfimages.UploadImageRequest{
			ID:       args[0],
			FileName: filepath.Base(args[1]),
			FileData: data,
		})
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	case "list":
		req := cfimages.DefaultListImagesRequest()
		if len(args) > 0 {
			if req.Page, _ = strconv.Atoi(args[0]); req.Page == 0 {
				return fmt.Errorf("bad page %q", args[0])
			}
		}
		if len(args) > 1 {
			if req.PerPage, _ = strconv.Atoi(args[1]); req.PerPage == 0 {
				return fmt.Errorf("bad per_page %q", args[1])
			}
		}
		resp, err := client.ListImages(ctx, req)
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <id>")
		}
		resp, err := client.GetImage(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: rm <id>")
		}
		resp, err := client.DeleteImage(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	case "variants":
		resp, err := client.ListVariants(ctx)
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	case "stats":
		resp, err := client.GetStats(ctx)
		if err != nil {
			return err
		}
		return printResult(resp.Success, resp.Result, resp.Errors)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printResult(success bool, result any, apiErrs []cfimages.APIError) error {
	if !success {
		if len(apiErrs) == 0 {
			return fmt.Errorf("api error: request failed")
		}
		return fmt.Errorf("api error: %d %s", apiErrs[0].Code, apiErrs[0].Message)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
