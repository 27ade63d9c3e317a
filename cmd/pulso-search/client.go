package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func init() {
	// videos
	var videoQuery, videoMode string
	var videoLimit int
	videosCmd := &cobra.Command{
		Use:   "videos",
		Short: "Search news videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVideos(newClient(apiFlag, timeoutFlag), videoQuery, videoMode, videoLimit, cmd.OutOrStdout())
		},
	}
	videosCmd.Flags().StringVarP(&videoQuery, "query", "q", "", "Search term (defaults server-side)")
	videosCmd.Flags().StringVarP(&videoMode, "mode", "m", "search", "search or trending")
	videosCmd.Flags().IntVarP(&videoLimit, "limit", "l", 0, "Number of videos (server default when 0)")
	rootCmd.AddCommand(videosCmd)

	// trending
	var trendingLimit int
	trendingCmd := &cobra.Command{
		Use:   "trending",
		Short: "List trending civic videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVideos(newClient(apiFlag, timeoutFlag), "", "trending", trendingLimit, cmd.OutOrStdout())
		},
	}
	trendingCmd.Flags().IntVarP(&trendingLimit, "limit", "l", 0, "Number of videos (server default when 0)")
	rootCmd.AddCommand(trendingCmd)

	// search
	var searchPage, searchPageSize int
	searchCmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Run a universal web/news search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(newClient(apiFlag, timeoutFlag), strings.Join(args, " "), searchPage, searchPageSize, cmd.OutOrStdout())
		},
	}
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "Page number")
	searchCmd.Flags().IntVarP(&searchPageSize, "page-size", "s", 0, "Page size (server default when 0)")
	rootCmd.AddCommand(searchCmd)

	// cache
	var surface string
	cacheCmd := &cobra.Command{Use: "cache", Short: "Inspect or clear a result cache"}
	cacheCmd.PersistentFlags().StringVar(&surface, "surface", "videos", "videos or search")
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(newClient(apiFlag, timeoutFlag), surface, cmd.OutOrStdout())
		},
	})
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(newClient(apiFlag, timeoutFlag), surface, cmd.OutOrStdout())
		},
	})
	rootCmd.AddCommand(cacheCmd)
}

func newClient(base string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}

func runVideos(c *resty.Client, query, mode string, limit int, out io.Writer) error {
	params := map[string]string{"mode": mode}
	if query != "" {
		params["q"] = query
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	resp, err := c.R().SetQueryParams(params).Get("/videos")
	return copyBody(resp, err, out)
}

func runSearch(c *resty.Client, term string, page, pageSize int, out io.Writer) error {
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("search term cannot be empty")
	}
	params := map[string]string{"q": term, "page": strconv.Itoa(page)}
	if pageSize > 0 {
		params["pageSize"] = strconv.Itoa(pageSize)
	}
	resp, err := c.R().SetQueryParams(params).Get("/search")
	return copyBody(resp, err, out)
}

func runCacheStats(c *resty.Client, surface string, out io.Writer) error {
	path, err := cachePath(surface, "stats")
	if err != nil {
		return err
	}
	resp, err := c.R().Get(path)
	return copyBody(resp, err, out)
}

func runCacheClear(c *resty.Client, surface string, out io.Writer) error {
	path, err := cachePath(surface, "clear")
	if err != nil {
		return err
	}
	resp, err := c.R().Post(path)
	return copyBody(resp, err, out)
}

func cachePath(surface, action string) (string, error) {
	switch surface {
	case "videos", "search":
		return "/" + surface + "/cache/" + action, nil
	default:
		return "", fmt.Errorf("unknown surface %q (want videos or search)", surface)
	}
}

func copyBody(resp *resty.Response, err error, out io.Writer) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	_, err = out.Write(resp.Body())
	return err
}
