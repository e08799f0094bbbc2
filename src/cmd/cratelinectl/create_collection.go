package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crateline/crateline/src/internal/domain"
)

var (
	createTitle    string
	createKind     string
	createMusicDir string
)

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection",
	Short: "Create a new collection rooted at a music directory",
	Run: func(cmd *cobra.Command, args []string) {
		st, _, err := openStore(context.Background())
		if err != nil {
			fail(err)
		}
		defer st.Close()

		created, err := st.CreateCollection(context.Background(), domain.Collection{
			Header: domain.NewEntityHeader(),
			Title:  createTitle,
			Kind:   domain.CollectionKind(createKind),
			MediaSource: domain.MediaSourceConfig{
				Kind:    domain.ContentPathVirtualFilePath,
				RootURL: createMusicDir,
			},
		})
		if err != nil {
			fail(err)
		}
		fmt.Printf("created collection %s (%s)\n", created.Header.Uid, created.Title)
	},
}

func init() {
	createCollectionCmd.Flags().StringVar(&createTitle, "title", "", "collection title")
	createCollectionCmd.Flags().StringVar(&createKind, "kind", "", "collection kind (open tag, e.g. mix|archive)")
	createCollectionCmd.Flags().StringVar(&createMusicDir, "music-dir", "", "file:// root URL of the tracked directory")
	createCollectionCmd.MarkFlagRequired("music-dir")
	rootCmd.AddCommand(createCollectionCmd)
}
