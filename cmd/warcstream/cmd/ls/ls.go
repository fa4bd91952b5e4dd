/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ls

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcstream"
)

type conf struct {
	offset      int64
	recordCount int
	strict      bool
	gzip        string
	fileName    string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "ls <file>",
		Short: "List records with their offsets",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			c.fileName = args[0]
			if c.offset >= 0 && c.recordCount == 0 {
				c.recordCount = 1
			}
			return runE(c)
		},
	}

	cmd.Flags().Int64VarP(&c.offset, "offset", "o", -1, "record offset")
	cmd.Flags().IntVarP(&c.recordCount, "record-count", "c", 0, "the maximum number of records to show")
	cmd.Flags().BoolVarP(&c.strict, "strict", "s", false, "strict parsing")
	cmd.Flags().StringVar(&c.gzip, "gzip", "auto", "compression mode: auto, none, record or file")

	return cmd
}

var (
	typeColor   = color.New(color.FgCyan).SprintFunc()
	offsetColor = color.New(color.FgYellow).SprintFunc()
	errorColor  = color.New(color.FgRed).SprintFunc()
)

func runE(c *conf) error {
	framing, err := warcstream.ParseFraming(c.gzip)
	if err != nil {
		return err
	}
	opts := []warcstream.Option{warcstream.WithFraming(framing)}
	if c.strict {
		opts = append(opts, warcstream.WithSyntaxErrorPolicy(warcstream.ErrFail))
	}

	s, err := warcstream.OpenArchive(c.fileName, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if c.offset >= 0 {
		if err := s.Seek(c.offset); err != nil {
			return err
		}
	}

	count := 0
	records := s.ReadRecords(c.recordCount, true)
	for {
		reading, err := records.Next()
		if err != nil {
			break
		}
		if reading.Record == nil {
			for _, e := range reading.Errors {
				_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", errorColor("error"), e)
			}
			break
		}
		count++
		printRecord(reading)
	}
	_, _ = fmt.Fprintln(os.Stderr, "Count:", count)
	return nil
}

func printRecord(reading warcstream.RecordReading) {
	record := reading.Record
	offset := "-"
	if reading.HasOffset {
		offset = fmt.Sprintf("%d", reading.Offset)
	}
	fmt.Printf("%v\t%v\t%d\t%s\t%s\n",
		offsetColor(offset),
		typeColor(record.Type()),
		record.ContentLength(),
		record.Header().Get(warcstream.WarcRecordID),
		record.TargetURI())
}
