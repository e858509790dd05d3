package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/output"
)

// DateTimeFormat is the expected format for --begin and --end flags,
// matching the teacher's CLI datetime contract.
const DateTimeFormat = "2006-01-02 15:04:05"

var (
	serverURL  string
	jobIDFlag  string
	levelsFlag []string
	searchFlag string
	beginFlag  string
	endFlag    string
	lastFlag   string
	pageFlag   int
	sizeFlag   int
	timelineFlag bool
	intervalFlag string
)

// queryCmd issues a LogQueryRequest against a running server and renders
// the result as a terminal table (supplements §6: "CLI query helper").
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search or summarize a completed ingestion job from the command line",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "logforge server base URL")
	queryCmd.Flags().StringVar(&jobIDFlag, "job", "", "Job ID to query (required)")
	queryCmd.Flags().StringSliceVar(&levelsFlag, "level", nil, "Filter by level(s), e.g. ERROR,WARN")
	queryCmd.Flags().StringVar(&searchFlag, "search", "", "Free-text search term")
	queryCmd.Flags().StringVar(&beginFlag, "begin", "", "Filter entries after this datetime (format: YYYY-MM-DD HH:MM:SS)")
	queryCmd.Flags().StringVar(&endFlag, "end", "", "Filter entries before this datetime (format: YYYY-MM-DD HH:MM:SS)")
	queryCmd.Flags().StringVar(&lastFlag, "last", "", "Analyze last N duration from now (e.g. 1h, 30m)")
	queryCmd.Flags().IntVar(&pageFlag, "page", 0, "Page number (0-based)")
	queryCmd.Flags().IntVar(&sizeFlag, "size", model.DefaultPageSize, "Page size")
	queryCmd.Flags().BoolVar(&timelineFlag, "timeline", false, "Render the job's timeline instead of a search result")
	queryCmd.Flags().StringVar(&intervalFlag, "interval", "1h", "Timeline bucket interval (used with --timeline)")
	queryCmd.MarkFlagRequired("job")
}

func runQuery(cmd *cobra.Command, args []string) error {
	begin, end := parseDateTimes(beginFlag, endFlag)
	if lastFlag != "" {
		d, err := time.ParseDuration(lastFlag)
		if err != nil {
			return fmt.Errorf("invalid --last duration: %w", err)
		}
		end = time.Now().UTC()
		begin = end.Add(-d)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	if timelineFlag {
		return runTimeline(client, begin, end)
	}
	return runSearch(client, begin, end)
}

func runSearch(client *http.Client, begin, end time.Time) error {
	values := url.Values{}
	values.Set("jobId", jobIDFlag)
	if searchFlag != "" {
		values.Set("searchText", searchFlag)
	}
	if len(levelsFlag) > 0 {
		values.Set("levels", strings.Join(levelsFlag, ","))
	}
	if !begin.IsZero() {
		values.Set("startDate", begin.Format(model.WireTimestampFormat))
	}
	if !end.IsZero() {
		values.Set("endDate", end.Format(model.WireTimestampFormat))
	}
	values.Set("page", strconv.Itoa(pageFlag))
	values.Set("size", strconv.Itoa(sizeFlag))

	var resp model.LogQueryResponse
	if err := getJSON(client, serverURL+"/logs/search?"+values.Encode(), &resp); err != nil {
		return err
	}

	output.PrintEntriesTable(resp.Entries)
	fmt.Printf("\npage %d/%d, %d total entries (%dms)\n",
		resp.Pagination.Page+1, max(resp.Pagination.TotalPages, 1), resp.Pagination.TotalElements, resp.QueryTimeMs)
	return nil
}

func runTimeline(client *http.Client, begin, end time.Time) error {
	values := url.Values{}
	values.Set("interval", intervalFlag)
	if !begin.IsZero() {
		values.Set("startDate", begin.Format(model.WireTimestampFormat))
	}
	if !end.IsZero() {
		values.Set("endDate", end.Format(model.WireTimestampFormat))
	}

	var data model.TimelineData
	url := fmt.Sprintf("%s/logs/job/%s/timeline?%s", serverURL, jobIDFlag, values.Encode())
	if err := getJSON(client, url, &data); err != nil {
		return err
	}
	output.PrintTimeline(data)
	return nil
}

func getJSON(client *http.Client, url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("server returned %s: %s", resp.Status, errBody.Error)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// parseDateTimes parses the begin and end datetime strings. Returns zero
// time.Time values if the strings are empty. Exits with a fatal error if
// parsing fails.
func parseDateTimes(beginStr, endStr string) (time.Time, time.Time) {
	var begin, end time.Time

	if beginStr != "" {
		parsed, err := time.Parse(DateTimeFormat, beginStr)
		if err != nil {
			log.Fatalf("[ERROR] invalid --begin datetime format. Expected: %s, got: %s", DateTimeFormat, beginStr)
		}
		begin = parsed.UTC()
	}
	if endStr != "" {
		parsed, err := time.Parse(DateTimeFormat, endStr)
		if err != nil {
			log.Fatalf("[ERROR] invalid --end datetime format. Expected: %s, got: %s", DateTimeFormat, endStr)
		}
		end = parsed.UTC()
	}
	return begin, end
}
