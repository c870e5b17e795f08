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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLens/services/lens/app"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
)

// Diagram kinds accepted by --kind.
const (
	kindClass = "class"
	kindCall  = "call"
	kindAll   = "all"
)

func newDiagramCmd(c *cli) *cobra.Command {
	var kind string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagram <bundle.zip|file.js|->",
		Short: "Print the class diagram and call graph as Mermaid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch kind {
			case kindClass, kindCall, kindAll:
			default:
				return fmt.Errorf("unknown diagram kind %q (want class, call or all)", kind)
			}

			rt, err := app.New(c.cfg, c.logger, app.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			r, err := c.analyzeOne(cmd.Context(), cmd, rt.Session, rt.Reader, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				switch kind {
				case kindClass:
					return enc.Encode(r.Diagrams.Class)
				case kindCall:
					return enc.Encode(r.Diagrams.Call)
				default:
					return enc.Encode(r.Diagrams)
				}
			}

			var m diagram.Mermaid
			if kind == kindClass || kind == kindAll {
				fmt.Fprint(out, m.ClassDiagram(r.Diagrams.Class))
			}
			if kind == kindAll {
				fmt.Fprintln(out)
			}
			if kind == kindCall || kind == kindAll {
				fmt.Fprint(out, m.CallGraph(r.Diagrams.Call))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", kindAll, "Diagram to print: class, call or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the diagram model as JSON instead of Mermaid")
	return cmd
}
