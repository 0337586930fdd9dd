package main

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var entityGroup = &cobra.Group{ //nolint:gochecknoglobals // cobra command tree.
	ID:    "entity",
	Title: "Characters, locations, assets and the court record",
}

func init() {
	for _, cmd := range []*cobra.Command{characterAddCmd, characterUpdateCmd} {
		cmd.Flags().String("name", "", "display name")
		cmd.Flags().String("gender", string(entity.GenderUnknown), "male, female or unknown")
		cmd.Flags().String("caption", "", "short caption shown in the court record")
		cmd.Flags().String("description", "", "longer description")
		cmd.Flags().String("sprite", "", "base name of the sprite")
		cmd.Flags().String("profile-image", "", "asset ID of the profile picture, enables the profile")
	}
	characterCmd.AddCommand(characterAddCmd, characterUpdateCmd, characterRemoveCmd, characterListCmd)

	locationAddCmd.Flags().String("preview", "", "asset ID of the preview image")
	locationCmd.AddCommand(locationAddCmd, locationRemoveCmd, locationListCmd)

	assetAddCmd.Flags().String("kind", string(entity.AssetImage), "image, sprite or audio")
	assetAddCmd.Flags().String("name", "", "asset name, defaults to the file name")
	assetAddCmd.Flags().String("media-type", "", "media type, detected from the file when empty")
	assetCmd.AddCommand(assetAddCmd, assetRemoveCmd, assetListCmd)
}

var characterCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "character",
	GroupID: "entity",
	Short:   "Manage the characters of the case",
}

// applyCharacterFlags copies the flags set on the command line onto c.
func applyCharacterFlags(flags *pflag.FlagSet, c *entity.Character) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("name", &c.Name)
	str("caption", &c.Caption)
	str("description", &c.Description)
	str("sprite", &c.SpriteName)
	if flags.Changed("gender") {
		gender, _ := flags.GetString("gender")
		c.Gender = entity.Gender(gender)
	}
	if flags.Changed("profile-image") {
		image, _ := flags.GetString("profile-image")
		c.ProfileImage = entity.AssetID(image)
		c.ProfileEnabled = image != ""
	}
}

var characterAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add",
	Short: "Add a character",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := entity.Character{Gender: entity.GenderUnknown} //nolint:exhaustruct // filled from flags.
		applyCharacterFlags(cmd.Flags(), &c)
		if err := c.Validate(); err != nil {
			return errors.Wrap(err, "invalid character")
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			id := doc.Entities().AddCharacter(c)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var characterUpdateCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "update ID",
	Short: "Change the fields of a character given as flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := entity.CharacterID(args[0])
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			c, err := doc.Entities().Character(id)
			if err != nil {
				return err
			}
			applyCharacterFlags(cmd.Flags(), &c)
			if err = c.Validate(); err != nil {
				return errors.Wrap(err, "invalid character", slog.String("id", args[0]))
			}
			return doc.Entities().UpdateCharacter(id, c)
		})
	},
}

var characterRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove ID",
	Short: "Remove a character that no block refers to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.Entities().RemoveCharacter(entity.CharacterID(args[0]))
		})
	},
}

var characterListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list",
	Short: "List characters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range doc.Entities().Characters() {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-24s %-8s refs=%d\n",
				c.ID, c.Name, c.Gender, doc.References(entity.CharacterRef(c.ID)))
		}
		return nil
	},
}

var locationCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "location",
	GroupID: "entity",
	Short:   "Manage the locations of the case",
}

var locationAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add NAME",
	Short: "Add a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, _ := cmd.Flags().GetString("preview")
		l := entity.Location{ID: "", Name: args[0], PreviewImage: entity.AssetID(preview), Extra: nil}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			id := doc.Entities().AddLocation(l)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var locationRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove ID",
	Short: "Remove a location that no block refers to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.Entities().RemoveLocation(entity.LocationID(args[0]))
		})
	},
}

var locationListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list",
	Short: "List locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		for _, l := range doc.Entities().Locations() {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-32s refs=%d\n",
				l.ID, l.Name, doc.References(entity.LocationRef(l.ID)))
		}
		return nil
	},
}

var assetCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "asset",
	GroupID: "entity",
	Short:   "Manage the media embedded in the case",
}

// mediaType guesses the media type from the extension first and then from the content.
func mediaType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

var assetAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add FILE",
	Short: "Embed a file as an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read asset", slog.String("path", args[0]))
		}
		kind, _ := cmd.Flags().GetString("kind")
		name, _ := cmd.Flags().GetString("name")
		media, _ := cmd.Flags().GetString("media-type")
		if name == "" {
			name = filepath.Base(args[0])
		}
		if media == "" {
			media = mediaType(args[0], data)
		}
		a := entity.Asset{ID: "", Name: name, Kind: entity.AssetKind(kind), MediaType: media, Data: data, Extra: nil}
		if err = a.Validate(); err != nil {
			return errors.Wrap(err, "invalid asset", slog.String("path", args[0]))
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			id := doc.Entities().AddAsset(a)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var assetRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove ID",
	Short: "Remove an asset that nothing refers to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			return doc.Entities().RemoveAsset(entity.AssetID(args[0]))
		})
	},
}

var assetListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list",
	Short: "List assets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range doc.Entities().Assets() {
			users := doc.References(entity.AssetRef(a.ID)) + len(doc.Entities().AssetUsers(a.ID))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-7s %-24s %-16s %8d bytes refs=%d\n",
				a.ID, a.Kind, a.Name, a.MediaType, len(a.Data), users)
		}
		return nil
	},
}
