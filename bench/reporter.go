// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// report output formats
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Throughput is the number of items processed over an elapsed time
type Throughput struct {
	Count   int64
	Elapsed time.Duration
}

func Measure(count int64, start, end time.Time) Throughput {
	return Throughput{Count: count, Elapsed: end.Sub(start)}
}

// Rate returns items per second
func (tp Throughput) Rate() float64 {
	if tp.Elapsed <= 0 {
		return 0
	}
	return float64(tp.Count) / tp.Elapsed.Seconds()
}

// PerItem returns the elapsed time per item
func (tp Throughput) PerItem() time.Duration {
	if tp.Count <= 0 {
		return 0
	}
	return tp.Elapsed / time.Duration(tp.Count)
}

// Report summarizes a run
type Report struct {
	RunID          string
	Workers        int
	Signing        Throughput
	Transfer       Throughput
	InitialBalance int64
	FinalBalance   int64
}

// Successful is the number of transfers the ledger applied
func (r *Report) Successful() int64 {
	return r.Transfer.Count
}

type reportView struct {
	RunID              string  `json:"run_id" yaml:"run_id"`
	Workers            int     `json:"workers" yaml:"workers"`
	Signatures         int64   `json:"signatures" yaml:"signatures"`
	SigningSeconds     float64 `json:"signing_seconds" yaml:"signing_seconds"`
	SignaturesPerSec   float64 `json:"signatures_per_sec" yaml:"signatures_per_sec"`
	MicrosPerSignature float64 `json:"us_per_signature" yaml:"us_per_signature"`
	InitialBalance     int64   `json:"initial_balance" yaml:"initial_balance"`
	FinalBalance       int64   `json:"final_balance" yaml:"final_balance"`
	Successful         int64   `json:"successful_transactions" yaml:"successful_transactions"`
	TransferSeconds    float64 `json:"transfer_seconds" yaml:"transfer_seconds"`
	TPS                float64 `json:"tps" yaml:"tps"`
}

func (r *Report) view() *reportView {
	return &reportView{
		RunID:              r.RunID,
		Workers:            r.Workers,
		Signatures:         r.Signing.Count,
		SigningSeconds:     r.Signing.Elapsed.Seconds(),
		SignaturesPerSec:   r.Signing.Rate(),
		MicrosPerSignature: float64(r.Signing.PerItem()) / float64(time.Microsecond),
		InitialBalance:     r.InitialBalance,
		FinalBalance:       r.FinalBalance,
		Successful:         r.Successful(),
		TransferSeconds:    r.Transfer.Elapsed.Seconds(),
		TPS:                r.Transfer.Rate(),
	}
}

// Write prints the report in the given format
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.view())
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(r.view()); err != nil {
			return err
		}
		return enc.Close()
	case OutputText, "":
		return r.writeText(w)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (r *Report) writeText(w io.Writer) error {
	bold := color.New(color.Bold)
	boldGreen := color.New(color.Bold, color.FgGreen)
	v := r.view()

	if _, err := fmt.Fprintf(w, "Mint's Initial Balance %d\n", v.InitialBalance); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %.2f thousand signatures per second, %.2fus per signature\n",
		bold.Sprint("Done."), v.SignaturesPerSec/1000, v.MicrosPerSignature)
	fmt.Fprintf(w, "Transferred %d transactions in %d batches\n", v.Signatures, v.Workers)
	fmt.Fprintf(w, "Mint's Final Balance %d\n", v.FinalBalance)
	fmt.Fprintf(w, "Successful transactions %d\n", v.Successful)
	_, err := fmt.Fprintf(w, "%s %.2f tps!\n", boldGreen.Sprint("Done."), v.TPS)
	return err
}
