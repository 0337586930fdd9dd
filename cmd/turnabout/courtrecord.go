package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errNoSuchHotspot = errors.NewSentinel("no such hotspot")

func init() {
	for _, cmd := range []*cobra.Command{evidenceAddCmd, evidenceUpdateCmd} {
		cmd.Flags().String("name", "", "display name")
		cmd.Flags().String("caption", "", "short caption shown in the court record")
		cmd.Flags().String("description", "", "longer description")
		cmd.Flags().String("image", "", "asset ID of the court record icon")
		cmd.Flags().String("check-image", "", "asset ID of the close-up shown when checking the item")
	}
	evidenceCmd.AddCommand(evidenceAddCmd, evidenceUpdateCmd, evidenceRemoveCmd, evidenceListCmd)

	testimonyAddCmd.Flags().String("speaker", "", "character ID of the witness")
	testimonyAddCmd.Flags().String("next-block", "", "block run after the testimony")
	testimonyAddCmd.Flags().String("follow-location", "", "location ID shown while testifying")
	testimonyAddCmd.Flags().String("cross-examine-end", "", "block run after the last statement is passed")
	_ = testimonyAddCmd.MarkFlagRequired("speaker")
	testimonyPieceCmd.Flags().String("present-evidence", "", "evidence ID that contradicts the statement")
	testimonyPieceCmd.Flags().String("present-block", "", "block run when the evidence is presented")
	testimonyPieceCmd.Flags().String("press-block", "", "block run when the statement is pressed")
	testimonyPieceCmd.Flags().Bool("hidden", false, "statement is revealed by a trigger")
	testimonyCmd.AddCommand(testimonyAddCmd, testimonyPieceCmd, testimonyRemoveCmd, testimonyListCmd)

	for _, name := range []string{"x", "y", "width", "height"} {
		hotspotAddCmd.Flags().Int(name, 0, "hotspot "+name+" in pixels")
	}
	hotspotAddCmd.Flags().String("block", "", "block run when the hotspot is examined")
	_ = hotspotAddCmd.MarkFlagRequired("block")
	hotspotCmd.AddCommand(hotspotAddCmd, hotspotRemoveCmd)
	locationCmd.AddCommand(hotspotCmd)
}

var evidenceCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "evidence",
	GroupID: "entity",
	Short:   "Manage the court record",
}

func applyEvidenceFlags(flags *pflag.FlagSet, e *entity.Evidence) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("name", &e.Name)
	str("caption", &e.Caption)
	str("description", &e.Description)
	if flags.Changed("image") {
		image, _ := flags.GetString("image")
		e.Image = entity.AssetID(image)
	}
	if flags.Changed("check-image") {
		image, _ := flags.GetString("check-image")
		e.CheckImage = entity.AssetID(image)
	}
}

var evidenceAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add",
	Short: "Add a piece of evidence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var e entity.Evidence
		applyEvidenceFlags(cmd.Flags(), &e)
		if err := e.Validate(); err != nil {
			return errors.Wrap(err, "invalid evidence")
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			id := doc.Entities().AddEvidence(e)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var evidenceUpdateCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "update ID",
	Short: "Change the fields of a piece of evidence given as flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := entity.EvidenceID(args[0])
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			e, err := doc.Entities().Evidence(id)
			if err != nil {
				return err
			}
			applyEvidenceFlags(cmd.Flags(), &e)
			if err = e.Validate(); err != nil {
				return errors.Wrap(err, "invalid evidence", slog.String("id", args[0]))
			}
			return doc.Entities().UpdateEvidence(id, e)
		})
	},
}

var evidenceRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove ID",
	Short: "Remove evidence that no block or testimony refers to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.Entities().RemoveEvidence(entity.EvidenceID(args[0]))
		})
	},
}

var evidenceListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list",
	Short: "List the court record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range doc.Entities().EvidenceList() {
			ref := entity.EvidenceRef(e.ID)
			users := doc.References(ref) + len(doc.Entities().Users(ref))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-24s %-24s refs=%d\n", e.ID, e.Name, e.Caption, users)
		}
		return nil
	},
}

var testimonyCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "testimony",
	GroupID: "entity",
	Short:   "Manage witness testimonies",
}

var testimonyAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add TITLE",
	Short: "Add an empty testimony, statements are added with piece",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		speaker, _ := flags.GetString("speaker")
		next, _ := flags.GetString("next-block")
		follow, _ := flags.GetString("follow-location")
		end, _ := flags.GetString("cross-examine-end")
		t := entity.Testimony{
			ID:              "",
			Title:           args[0],
			Speaker:         entity.CharacterID(speaker),
			NextBlock:       next,
			FollowLocation:  entity.LocationID(follow),
			CrossExamineEnd: end,
			Pieces:          nil,
			Extra:           nil,
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			id := doc.Entities().AddTestimony(t)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var testimonyPieceCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "piece ID TEXT",
	Short: "Append a statement to a testimony",
	Args:  cobra.ExactArgs(2), //nolint:mnd // ID and text.
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		evidence, _ := flags.GetString("present-evidence")
		present, _ := flags.GetString("present-block")
		press, _ := flags.GetString("press-block")
		hidden, _ := flags.GetBool("hidden")
		piece := entity.TestimonyPiece{
			Text:            args[1],
			PresentEvidence: entity.EvidenceID(evidence),
			PresentBlock:    present,
			PressBlock:      press,
			Hidden:          hidden,
		}
		if err := piece.Validate(); err != nil {
			return errors.Wrap(err, "invalid statement")
		}
		id := entity.TestimonyID(args[0])
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			t, err := doc.Entities().Testimony(id)
			if err != nil {
				return err
			}
			t.Pieces = append(t.Pieces, piece)
			return doc.Entities().UpdateTestimony(id, t)
		})
	},
}

var testimonyRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove ID",
	Short: "Remove a testimony that no block displays",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.Entities().RemoveTestimony(entity.TestimonyID(args[0]))
		})
	},
}

var testimonyListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list",
	Short: "List testimonies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range doc.Entities().Testimonies() {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-32s %-8s pieces=%d\n", t.ID, t.Title, t.Speaker, len(t.Pieces))
		}
		return nil
	},
}

var hotspotCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "hotspot",
	Short: "Manage the examinable areas of a location",
}

var hotspotAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add LOCATION",
	Short: "Add a rectangle that runs a block when examined",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var h entity.Hotspot
		h.X, _ = flags.GetInt("x")
		h.Y, _ = flags.GetInt("y")
		h.Width, _ = flags.GetInt("width")
		h.Height, _ = flags.GetInt("height")
		h.Block, _ = flags.GetString("block")
		if err := h.Validate(); err != nil {
			return errors.Wrap(err, "invalid hotspot")
		}
		id := entity.LocationID(args[0])
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			l, err := doc.Entities().Location(id)
			if err != nil {
				return err
			}
			l.Hotspots = append(l.Hotspots, h)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), len(l.Hotspots)-1)
			return doc.Entities().UpdateLocation(id, l)
		})
	},
}

var hotspotRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove LOCATION INDEX",
	Short: "Remove a hotspot by its position",
	Args:  cobra.ExactArgs(2), //nolint:mnd // location and index.
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		id := entity.LocationID(args[0])
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			l, err := doc.Entities().Location(id)
			if err != nil {
				return err
			}
			if index < 0 || index >= len(l.Hotspots) {
				return errors.Wrap(errNoSuchHotspot, "remove hotspot",
					slog.String("location", args[0]), slog.Int("index", index))
			}
			l.Hotspots = slices.Delete(l.Hotspots, index, index+1)
			return doc.Entities().UpdateLocation(id, l)
		})
	},
}
