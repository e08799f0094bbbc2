package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crateline/crateline/src/internal/domain"
)

var msCollectionUid string

var mediaSourcesCmd = &cobra.Command{
	Use:   "media-sources",
	Short: "Inspect and prune a collection's media sources",
}

var msPurgeOrphanedCmd = &cobra.Command{
	Use:   "purge-orphaned",
	Short: "Delete media sources no track references",
	Run: func(cmd *cobra.Command, args []string) {
		st, _, err := openStore(context.Background())
		if err != nil {
			fail(err)
		}
		defer st.Close()

		uid, err := domain.ParseUid(msCollectionUid)
		if err != nil {
			fail(err)
		}
		rowID, err := st.CollectionRowID(context.Background(), uid)
		if err != nil {
			fail(err)
		}
		n, err := st.PurgeOrphanedMediaSources(context.Background(), rowID)
		if err != nil {
			fail(err)
		}
		fmt.Printf("purged %d orphaned media source(s)\n", n)
	},
}

func init() {
	mediaSourcesCmd.PersistentFlags().StringVar(&msCollectionUid, "collection", "", "collection uid")
	mediaSourcesCmd.MarkPersistentFlagRequired("collection")
	mediaSourcesCmd.AddCommand(msPurgeOrphanedCmd)
	rootCmd.AddCommand(mediaSourcesCmd)
}
