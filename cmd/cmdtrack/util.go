package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cmdtrack"
)

// recordView flattens a record into the same camelCase keys the HTTP API
// and the on-disk format use.
func recordView(rec *cmdtrack.Record) map[string]any {
	v := map[string]any{
		"uuid":      rec.UUID,
		"status":    rec.Status.String(),
		"command":   rec.Command,
		"startTime": rec.StartTime.Format(time.RFC3339),
	}
	if rec.PID > 0 {
		v["pid"] = rec.PID
	}
	if rec.ExitCode != nil {
		v["exitCode"] = *rec.ExitCode
	}
	if rec.EndTime != nil {
		v["endTime"] = rec.EndTime.Format(time.RFC3339)
	}
	if rec.LogPath != "" {
		v["logPath"] = rec.LogPath
	}
	if rec.WorkingDirectory != "" {
		v["workingDirectory"] = rec.WorkingDirectory
	}
	if rec.Shell != "" {
		v["shell"] = rec.Shell
	}
	if rec.Platform != "" {
		v["platform"] = rec.Platform
	}
	return v
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printRecords(recs []*cmdtrack.Record, asJSON bool) {
	if asJSON {
		views := make([]map[string]any, 0, len(recs))
		for _, rec := range recs {
			views = append(views, recordView(rec))
		}
		printJSON(views)
		return
	}
	for _, rec := range recs {
		exit := "-"
		if rec.ExitCode != nil {
			exit = fmt.Sprintf("%d", *rec.ExitCode)
		}
		fmt.Printf("%s  %-9s  %3s  %s  %s\n",
			rec.UUID, rec.Status, exit,
			rec.StartTime.Format("2006-01-02 15:04:05"), rec.Command)
	}
}
