package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tstromberg/camroll/pkg/camroll"
)

var (
	pageReq   camroll.PageRequest
	assetType string
	include   []string

	saveKind  string
	saveAlbum string

	thumbWidth   int
	thumbHeight  int
	thumbQuality float64
	thumbOut     string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rescan the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Scanner.Scan(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d files\n", n)
		return nil
	},
}

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Print a page of photos, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		pageReq.AssetType = camroll.AssetType(assetType)
		for _, i := range include {
			pageReq.Include = append(pageReq.Include, camroll.Include(i))
		}
		p, err := env.Library.FetchPage(cmd.Context(), pageReq)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List albums",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		as, err := env.Library.ListAlbums(cmd.Context(), camroll.AssetType(assetType))
		if err != nil {
			return err
		}
		return printJSON(as)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id-or-uri]",
	Short: "Show one asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		id, err := env.Library.GetAsset(cmd.Context(), args[0], camroll.ConversionOptions{})
		if err != nil {
			return err
		}
		return printJSON(id)
	},
}

var thumbCmd = &cobra.Command{
	Use:   "thumb [id-or-uri]",
	Short: "Render a JPEG thumbnail",
	Long:  `Prints the thumbnail as base64, or writes the JPEG to --out.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Library.Thumbnail(cmd.Context(), args[0], camroll.ThumbnailOptions{
			TargetSize: camroll.Size{Width: thumbWidth, Height: thumbHeight},
			Quality:    thumbQuality,
		})
		if err != nil {
			return err
		}
		if thumbOut == "" {
			fmt.Println(t.Base64)
			return nil
		}
		bs, err := base64.StdEncoding.DecodeString(t.Base64)
		if err != nil {
			return err
		}
		return os.WriteFile(thumbOut, bs, 0o644)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [path-or-url]",
	Short: "Save a local file or remote resource into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		id, err := env.Library.Save(cmd.Context(), args[0], camroll.SaveOptions{
			Kind:  camroll.MediaKind(saveKind),
			Album: saveAlbum,
		})
		if err != nil {
			return err
		}
		return printJSON(id)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [uri...]",
	Short: "Delete assets from the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		return env.Library.DeleteAssets(cmd.Context(), args)
	},
}

var permCmd = &cobra.Command{
	Use:   "perm",
	Short: "Check or request library permissions",
}

var permCheckCmd = &cobra.Command{
	Use:       "check [addOnly|readWrite]",
	Short:     "Show a permission status",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(camroll.AccessAddOnly), string(camroll.AccessReadWrite)},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Library.CheckPermission(cmd.Context(), camroll.AccessLevel(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil
	},
}

var permRequestCmd = &cobra.Command{
	Use:       "request [addOnly|readWrite]",
	Short:     "Request a permission",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(camroll.AccessAddOnly), string(camroll.AccessReadWrite)},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := open(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Library.RequestPermission(cmd.Context(), camroll.AccessLevel(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil
	},
}

func init() {
	photosCmd.Flags().IntVarP(&pageReq.First, "first", "n", 20, "Page size")
	photosCmd.Flags().StringVar(&pageReq.After, "after", "", "End cursor of the previous page")
	photosCmd.Flags().StringVar(&pageReq.GroupName, "album", "", "Only show this album")
	photosCmd.Flags().StringSliceVar(&pageReq.MimeTypes, "mime", nil, "Only show these MIME types")
	photosCmd.Flags().StringSliceVar(&include, "include", nil, "Optional fields to populate")
	photosCmd.Flags().Int64Var(&pageReq.FromTime, "from", 0, "Earliest capture time, ms since epoch")
	photosCmd.Flags().Int64Var(&pageReq.ToTime, "to", 0, "Capture time upper bound, ms since epoch")
	for _, c := range []*cobra.Command{photosCmd, albumsCmd} {
		c.Flags().StringVar(&assetType, "type", string(camroll.AssetAll), "All, Photos or Videos")
	}

	saveCmd.Flags().StringVar(&saveKind, "kind", "", "photo or video (default: detect)")
	saveCmd.Flags().StringVar(&saveAlbum, "album", "", "Album to save into")

	thumbCmd.Flags().IntVar(&thumbWidth, "width", 0, "Maximum width")
	thumbCmd.Flags().IntVar(&thumbHeight, "height", 256, "Maximum height")
	thumbCmd.Flags().Float64Var(&thumbQuality, "quality", 0.8, "JPEG quality, 0..1")
	thumbCmd.Flags().StringVarP(&thumbOut, "out", "o", "", "Write the JPEG here")

	permCmd.AddCommand(permCheckCmd)
	permCmd.AddCommand(permRequestCmd)

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(photosCmd)
	rootCmd.AddCommand(albumsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(thumbCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(permCmd)
}
