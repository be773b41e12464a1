// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/handlers"
)

// runStatus queries a running service's status endpoint and prints it.
func runStatus(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(statusAddr + "/v1/status")
	if err != nil {
		log.Fatalf("Failed to reach the service at %s: %v", statusAddr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read the response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Service returned %s: %s", resp.Status, body)
	}

	var status handlers.Status
	if err := json.Unmarshal(body, &status); err != nil {
		log.Fatalf("Failed to parse the response: %v", err)
	}

	fmt.Printf("target:         %s\n", orDash(status.Target))
	fmt.Printf("phase:          %s\n", orDash(status.Phase))
	fmt.Printf("conflict state: %s\n", status.ConflictState)
	fmt.Printf("roster size:    %d\n", status.RosterSize)
	fmt.Printf("funds:          %.2f\n", status.Funds)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
