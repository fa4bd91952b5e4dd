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

package extract

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcstream"
	"github.com/nlnwa/warcstream/pkg/extract"
)

type conf struct {
	locator string
	gzip    string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "extract <file>:<offset>",
		Short: "Extract the payload of the record at a byte offset",
		Long: `Extract the payload of the record at a byte offset.

The payload bytes are written verbatim to standard output. For an HTTP
response record the decoded message body is written; for any other record the
raw record content is written unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing <file>:<offset> locator")
			}
			c.locator = args[0]
			return runE(c)
		},
	}

	cmd.Flags().StringVar(&c.gzip, "gzip", "auto", "compression mode: auto, none, record or file")

	return cmd
}

func runE(c *conf) error {
	name, offset, err := extract.ParseLocator(c.locator)
	if err != nil {
		return err
	}
	framing, err := warcstream.ParseFraming(c.gzip)
	if err != nil {
		return err
	}

	payload, diagnostics, err := extract.Payload(name, offset, warcstream.WithFraming(framing))
	if err != nil {
		return err
	}
	for _, diagnostic := range diagnostics {
		log.Warn(diagnostic)
	}

	_, err = os.Stdout.Write(payload)
	return err
}
