package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/channel/anthropic"
	"github.com/songquanpeng/litegate/relay/util"
)

// modelID resolves a Claude model name to its Bedrock id and applies the
// cross-region inference profile prefix when the model supports one.
func modelID(requestModel string, region string) (string, error) {
	id, ok := modelIDMap[requestModel]
	if !ok {
		if !strings.Contains(requestModel, "anthropic.") {
			return "", errors.Errorf("model %s has no Bedrock mapping and is not a Bedrock model id", requestModel)
		}
		// already a model or inference profile id
		return requestModel, nil
	}
	prefix, _, _ := strings.Cut(region, "-")
	if crossRegionMap[id][prefix] {
		return regionProfilePrefix[prefix] + "." + id, nil
	}
	return id, nil
}

// credentialsOf splits a "accessKey|secretKey|region" key. Missing parts
// fall back to the default chain and BEDROCK_REGION.
func credentialsOf(apiKey string) (accessKey, secretKey, region string) {
	region = config.BedrockRegion
	if apiKey == "" {
		return "", "", region
	}
	parts := strings.Split(apiKey, "|")
	if len(parts) >= 2 {
		accessKey, secretKey = parts[0], parts[1]
	}
	if len(parts) >= 3 && parts[2] != "" {
		region = parts[2]
	}
	return accessKey, secretKey, region
}

var (
	clientsLock sync.Mutex
	clients     = map[string]*bedrockruntime.Client{}
)

func getClient(ctx context.Context, meta *util.RelayMeta) (*bedrockruntime.Client, string, error) {
	accessKey, secretKey, region := credentialsOf(meta.APIKey)
	cacheKey := strings.Join([]string{accessKey, secretKey, region, meta.BaseURL}, "|")

	clientsLock.Lock()
	defer clientsLock.Unlock()
	if client, ok := clients[cacheKey]; ok {
		return client, region, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, "", errors.Wrap(err, "load aws config")
	}
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if meta.BaseURL != "" {
			o.BaseEndpoint = aws.String(meta.BaseURL)
		}
	})
	clients[cacheKey] = client
	return client, region, nil
}

func convertRequest(claudeRequest *anthropic.Request) (*Request, error) {
	request := &Request{AnthropicVersion: bedrockAnthropicVersion}
	if err := copier.Copy(request, claudeRequest); err != nil {
		return nil, errors.Wrap(err, "copy request")
	}
	if config.AnthropicBeta != "" {
		for _, beta := range strings.Split(config.AnthropicBeta, ",") {
			request.AnthropicBeta = append(request.AnthropicBeta, strings.TrimSpace(beta))
		}
	}
	return request, nil
}

// statusCodeOf extracts the HTTP status of an AWS SDK error.
func statusCodeOf(err error) int {
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

// errorResponse renders an SDK error as an Anthropic error body so the
// shared error handling applies.
func errorResponse(err error) *http.Response {
	body, _ := json.Marshal(map[string]any{
		"type": "error",
		"error": map[string]string{
			"type":    "api_error",
			"message": err.Error(),
		},
	})
	return &http.Response{
		StatusCode: statusCodeOf(err),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func invoke(ctx context.Context, meta *util.RelayMeta, body []byte) (*http.Response, error) {
	client, region, err := getClient(ctx, meta)
	if err != nil {
		return nil, err
	}
	id, err := modelID(anthropic.GetBaseModelName(meta.ActualModelName), region)
	if err != nil {
		return errorResponse(err), nil
	}
	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(id),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		logger.Errorf(ctx, "bedrock InvokeModel failed: %s", err.Error())
		return errorResponse(err), nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(output.Body)),
	}, nil
}

// invokeStream turns the Bedrock event stream into an SSE body carrying the
// Anthropic stream events, so the Anthropic stream handler can read it.
func invokeStream(ctx context.Context, meta *util.RelayMeta, body []byte) (*http.Response, error) {
	client, region, err := getClient(ctx, meta)
	if err != nil {
		return nil, err
	}
	id, err := modelID(anthropic.GetBaseModelName(meta.ActualModelName), region)
	if err != nil {
		return errorResponse(err), nil
	}
	output, err := client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(id),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		logger.Errorf(ctx, "bedrock InvokeModelWithResponseStream failed: %s", err.Error())
		return errorResponse(err), nil
	}

	reader, writer := io.Pipe()
	go func() {
		stream := output.GetStream()
		defer stream.Close()
		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(writer, "data: %s\n\n", chunk.Value.Bytes); err != nil {
				// reader closed
				return
			}
		}
		if err := stream.Err(); err != nil {
			event, _ := json.Marshal(map[string]any{
				"type":  "error",
				"error": map[string]string{"type": "api_error", "message": err.Error()},
			})
			_, _ = fmt.Fprintf(writer, "data: %s\n\n", event)
		}
		_ = writer.Close()
	}()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       reader,
	}, nil
}
