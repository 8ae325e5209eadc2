package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/relay/cache"
	"github.com/songquanpeng/litegate/relay/channel/openai"
	"github.com/songquanpeng/litegate/relay/completion"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/songquanpeng/litegate/relay/model"
	"github.com/spf13/cobra"
)

var (
	modelName    string
	message      string
	systemPrompt string
	stream       bool
	useCache     bool
	configPath   string
	maxTokens    int
)

var rootCmd = &cobra.Command{
	Use:   "complete",
	Short: "Run one completion through litegate and print its usage.",
	Long: "Run one completion through litegate's completion client, without the HTTP server.\n" +
		"Provider keys are read from the same environment variables the gateway uses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComplete(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&modelName, "model", "", "Model name, e.g. openai/gpt-4o-mini or a name from the model config.")
	rootCmd.Flags().StringVar(&message, "message", "", "User message to send.")
	rootCmd.Flags().StringVar(&systemPrompt, "system", "", "Optional system prompt.")
	rootCmd.Flags().BoolVar(&stream, "stream", false, "Stream the response.")
	rootCmd.Flags().BoolVar(&useCache, "cache", false, "Use an in-memory response cache and send the request twice.")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path of the YAML model deployment file.")
	rootCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max_tokens for the request.")
	_ = rootCmd.MarkFlagRequired("model")
	_ = rootCmd.MarkFlagRequired("message")
}

func buildRequest() *model.GeneralOpenAIRequest {
	var messages []model.Message
	if systemPrompt != "" {
		messages = append(messages, model.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, model.Message{Role: "user", Content: message})
	request := &model.GeneralOpenAIRequest{
		Model:     modelName,
		Messages:  messages,
		MaxTokens: maxTokens,
		Stream:    stream,
	}
	if stream {
		request.StreamOptions = &model.StreamOptions{IncludeUsage: true}
	}
	return request
}

func runComplete(ctx context.Context, out io.Writer) error {
	if configPath != "" {
		if _, err := config.LoadModelConfig(configPath); err != nil {
			return fmt.Errorf("failed to load model config: %w", err)
		}
	}
	openai.InitTokenEncoders()

	var opts []completion.Option
	if useCache {
		responseCache, err := cache.New(ctx, cache.Config{Type: cache.TypeLocal})
		if err != nil {
			return fmt.Errorf("failed to create cache: %w", err)
		}
		defer responseCache.Close()
		opts = append(opts, completion.WithCache(responseCache))
	}
	client := completion.NewClient(opts...)

	rounds := 1
	if useCache {
		rounds = 2
	}
	for i := 0; i < rounds; i++ {
		var (
			usage    *model.Usage
			cacheHit bool
			err      error
		)
		if stream {
			usage, cacheHit, err = streamOnce(ctx, client, out)
		} else {
			usage, cacheHit, err = completeOnce(ctx, client, out)
		}
		if err != nil {
			return err
		}
		if err := printUsage(out, usage, cacheHit); err != nil {
			return err
		}
		if useCache && i == 0 {
			// cache writes are asynchronous
			if err := waitForCache(ctx, client.Cache(), buildRequest()); err != nil {
				return err
			}
		}
	}
	return nil
}

func completeOnce(ctx context.Context, client *completion.Client, out io.Writer) (*model.Usage, bool, error) {
	result, err := client.Completion(ctx, buildRequest())
	if err != nil {
		return nil, false, err
	}
	fmt.Fprintln(out, result.Response.Content())
	return result.Usage, result.CacheHit, nil
}

func streamOnce(ctx context.Context, client *completion.Client, out io.Writer) (*model.Usage, bool, error) {
	s, err := client.Stream(ctx, buildRequest())
	if err != nil {
		return nil, false, err
	}
	defer s.Close()
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, err
		}
		fmt.Fprint(out, chunk.DeltaText())
	}
	fmt.Fprintln(out)
	return s.Usage(), s.CacheHit(), nil
}

func printUsage(out io.Writer, usage *model.Usage, cacheHit bool) error {
	data, err := json.MarshalIndent(map[string]any{
		"cache_hit": cacheHit,
		"usage":     usage,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func waitForCache(ctx context.Context, responseCache *cache.Cache, request *model.GeneralOpenAIRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, ok := responseCache.Get(ctx, request, constant.CallTypeCompletion); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New("response was not cached")
		case <-ticker.C:
		}
	}
}
