// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edw-labs/edw-assistant/pkg/metrics"
)

var tracesServerAddr string

var tracesCmd = &cobra.Command{
	Use:   "traces [trace-id]",
	Short: "List traces on a running server, or show one trace",
	Long:  `Query a running assistant server for the trace ids in its metrics window, or the full metrics entry for one trace id.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTraces,
}

func init() {
	tracesCmd.Flags().StringVar(&tracesServerAddr, "server", "http://localhost:8080", "base URL of the running server")
	rootCmd.AddCommand(tracesCmd)
}

func runTraces(_ *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	if len(args) == 0 {
		var list struct {
			TraceIDs []string `json:"trace_ids"`
			Count    int      `json:"count"`
		}
		if err := getJSON(client, tracesServerAddr+"/v1/traces", &list); err != nil {
			return err
		}
		if list.Count == 0 {
			fmt.Println("(no traces recorded)")
			return nil
		}
		for _, id := range list.TraceIDs {
			fmt.Println(id)
		}
		return nil
	}

	var entry metrics.QueryMetrics
	if err := getJSON(client, tracesServerAddr+"/v1/traces/"+args[0], &entry); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entry)
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
