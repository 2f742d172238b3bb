package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/matcher"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
)

func matchCmd() *cobra.Command {
	var (
		shortcuts []string
		stopwords string
	)

	cmd := &cobra.Command{
		Use:     "match [flags] message...",
		Short:   "Show which shortcut a message would trigger",
		Example: `  mailbox match -s payment -s "pricing list" "bhai payment ho gaya?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(shortcuts) == 0 {
				return errors.New("at least one --shortcut is required")
			}

			m := matcher.NewDefault()
			if stopwords != "" {
				sw, err := matcher.LoadStopwords(stopwords)
				if err != nil {
					return err
				}
				m.SetStopwords(sw)
			}

			result := m.FindBestMatch(strings.Join(args, " "), candidates(shortcuts))

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			if result == nil {
				return out.Encode(map[string]any{"matched": false})
			}
			return out.Encode(map[string]any{
				"matched":    true,
				"shortcut":   result.Reply.Shortcut,
				"match_type": result.MatchType,
				"score":      result.Score,
			})
		},
	}

	cmd.Flags().StringArrayVarP(&shortcuts, "shortcut", "s", nil, "candidate shortcut (repeatable, in priority order)")
	cmd.Flags().StringVar(&stopwords, "stopwords", "", "stopword file to use instead of the built-in list")
	return cmd
}

func candidates(shortcuts []string) []*models.QuickReply {
	replies := make([]*models.QuickReply, 0, len(shortcuts))
	for i, s := range shortcuts {
		replies = append(replies, &models.QuickReply{
			ID:       strconv.Itoa(i + 1),
			Shortcut: s,
			Content:  fmt.Sprintf("reply for %q", s),
			IsActive: true,
		})
	}
	return replies
}
