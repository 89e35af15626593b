package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kostyay/netpulse/internal/model"
)

// JSONCounters holds cumulative byte counts in JSON output.
type JSONCounters struct {
	BytesRecv uint64 `json:"bytes_recv"`
	BytesSent uint64 `json:"bytes_sent"`
}

// JSONOutput is the root structure of a one-shot snapshot.
type JSONOutput struct {
	Timestamp  time.Time       `json:"timestamp"`
	PublicIP   string          `json:"public_ip"`
	PublicHost string          `json:"public_host,omitempty"`
	Interfaces []JSONInterface `json:"interfaces"`
	Counters   JSONCounters    `json:"counters"`
}

// RenderJSON writes the network snapshot and counters as JSON to the writer.
func RenderJSON(w io.Writer, snapshot *model.NetworkSnapshot, counters model.Counters) error {
	output := JSONOutput{
		Timestamp:  snapshot.Timestamp,
		PublicIP:   snapshot.PublicIP,
		PublicHost: snapshot.PublicHost,
		Interfaces: make([]JSONInterface, 0, len(snapshot.Interfaces)),
		Counters: JSONCounters{
			BytesRecv: counters.RecvBytes,
			BytesSent: counters.SentBytes,
		},
	}

	for _, iface := range snapshot.Interfaces {
		output.Interfaces = append(output.Interfaces, JSONInterface{
			Name:    iface.Name,
			Address: iface.Address,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// RenderText writes the snapshot as an aligned table for terminals.
func RenderText(w io.Writer, snapshot *model.NetworkSnapshot, counters model.Counters) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	publicIP := snapshot.PublicIP
	if snapshot.PublicHost != "" {
		publicIP = fmt.Sprintf("%s (%s)", publicIP, snapshot.PublicHost)
	}
	fmt.Fprintf(tw, "Public IP:\t%s\n", publicIP)
	fmt.Fprintf(tw, "Received:\t%s\n", model.FormatBytes(counters.RecvBytes))
	fmt.Fprintf(tw, "Sent:\t%s\n", model.FormatBytes(counters.SentBytes))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "INTERFACE\tADDRESS")
	for _, iface := range snapshot.Interfaces {
		fmt.Fprintf(tw, "%s\t%s\n", iface.Name, iface.Address)
	}

	return tw.Flush()
}
