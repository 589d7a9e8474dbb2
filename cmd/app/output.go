package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// formatTime prints in the local zone of the operator's terminal.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func printWhoAmI(w whoAmI) {
	printKV([][2]string{
		{"user_id", formatID(w.UserID)},
		{"email", w.Email},
		{"permissions", strings.Join(w.Permissions, ", ")},
	})
}

func printEvents(page eventPage, outages bool) {
	rows := make([][]string, 0, len(page.Results))
	for _, e := range page.Results {
		end := formatTimePtr(e.End)
		if outages && e.End == nil {
			end = "ongoing"
		}
		row := []string{formatID(e.ID), e.Name, e.Provider, e.Status, formatTime(e.Start), end}
		if outages {
			row = append(row, formatTimePtr(e.ETR))
		} else {
			impacts := "-"
			if e.ImpactCount != nil {
				impacts = strconv.Itoa(*e.ImpactCount)
			}
			row = append(row, impacts)
		}
		row = append(row, yesNo(e.Acknowledged))
		rows = append(rows, row)
	}
	headers := []string{"ID", "NAME", "PROVIDER", "STATUS", "START", "END"}
	if outages {
		headers = append(headers, "ETR")
	} else {
		headers = append(headers, "IMPACTS")
	}
	printTable(append(headers, "ACK"), rows)
	if int64(len(page.Results)) < page.Count {
		fmt.Printf("showing %d of %d\n", len(page.Results), page.Count)
	}
}

func printMaintenanceDetail(d maintenanceDetail) {
	m := d.Maintenance
	printKV([][2]string{
		{"id", formatID(m.ID)},
		{"name", m.Name},
		{"summary", m.Summary},
		{"provider", m.Provider},
		{"status", m.Status},
		{"start", formatTime(m.Start)},
		{"end", formatTimePtr(m.End)},
		{"original_timezone", orDash(m.OriginalTimezone)},
		{"internal_ticket", orDash(m.InternalTicket)},
		{"acknowledged", yesNo(m.Acknowledged)},
	})
	fmt.Println()
	printImpacts(d.Impacts)
}

func printImpacts(items []impactRow) {
	rows := make([][]string, 0, len(items))
	for _, i := range items {
		rows = append(rows, []string{
			formatID(i.ID),
			i.EventType + ":" + formatID(i.EventID),
			i.Event,
			i.TargetType + ":" + formatID(i.TargetID),
			i.Target,
			i.Impact,
		})
	}
	printTable([]string{"ID", "EVENT_REF", "EVENT", "TARGET_REF", "TARGET", "IMPACT"}, rows)
}

func printImportedNotification(n importedNotification) {
	printKV([][2]string{
		{"id", formatID(n.ID)},
		{"event", n.Event},
		{"subject", n.Subject},
		{"from", n.EmailFrom},
		{"received", formatTime(n.EmailReceived)},
	})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
