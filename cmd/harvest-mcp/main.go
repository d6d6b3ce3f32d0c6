package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the Harvest API request model.
type scrapeRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout,omitempty"`
	MaxAge  int    `json:"max_age,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// productResponse mirrors the Harvest product API response.
type productResponse struct {
	Success  bool            `json:"success"`
	Product  json.RawMessage `json:"product"`
	Provider string          `json:"provider"`
	Error    *errorDetail    `json:"error"`
}

// searchResponse mirrors the Harvest search API response.
type searchResponse struct {
	Success bool `json:"success"`
	Result  *struct {
		Products     []json.RawMessage `json:"products"`
		TotalResults int               `json:"total_results"`
		SearchURL    string            `json:"search_url"`
	} `json:"result"`
	Provider string       `json:"provider"`
	Error    *errorDetail `json:"error"`
}

func main() {
	apiURL := os.Getenv("HARVEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("HARVEST_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "HARVEST_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"harvest",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeProductTool := mcp.NewTool("scrape_product",
		mcp.WithDescription("Scrape a product detail page from a supported e-commerce site (Amazon, Taobao/Tmall) and return normalized product data: name, prices, brand, images, specifications, rating."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product detail page URL"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Scrape timeout in seconds (default: 60, max: 300)"),
		),
	)
	s.AddTool(scrapeProductTool, handleScrapeProduct(apiURL, apiKey))

	scrapeSearchTool := mcp.NewTool("scrape_search",
		mcp.WithDescription("Scrape an e-commerce search results page and return a normalized product list with names, prices, URLs, and images."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The search results page URL"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Scrape timeout in seconds (default: 60, max: 300)"),
		),
	)
	s.AddTool(scrapeSearchTool, handleScrapeSearch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Harvest API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapeProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 320 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:     url,
			Timeout: int(request.GetFloat("timeout", 0)),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape/product", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp productResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "product scrape failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, resp.Product, "", "  "); err != nil {
			pretty.Write(resp.Product)
		}

		result := fmt.Sprintf("Provider: %s\n\n%s", resp.Provider, pretty.String())
		return mcp.NewToolResultText(result), nil
	}
}

func handleScrapeSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 320 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:     url,
			Timeout: int(request.GetFloat("timeout", 0)),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape/search", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp searchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "search scrape failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}
		if resp.Result == nil {
			return mcp.NewToolResultError("empty search result"), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Provider: %s\nResults: %d (%s)\n\n",
			resp.Provider, resp.Result.TotalResults, resp.Result.SearchURL))

		for i, raw := range resp.Result.Products {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				pretty.Write(raw)
			}
			sb.WriteString(fmt.Sprintf("--- [%d] ---\n%s\n\n", i+1, pretty.String()))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
