////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/elixxir/deskchat/chat"
	"gitlab.com/elixxir/deskchat/history"
)

// historyCmd prints the history log of one chat target
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored history of a room or direct chat",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initLog(viper.GetUint(logLevelFlag), viper.GetString(logFlag))

		err := dumpHistory(os.Stdout, viper.GetString(historyFlag),
			viper.GetString(userFlag), viper.GetString(kindFlag),
			viper.GetString(targetFlag))
		if err != nil {
			jww.FATAL.Panicf("%+v", err)
		}
	},
}

// dumpHistory writes every record of the target's log to w and reports how
// many malformed records were skipped.
func dumpHistory(w io.Writer, dir, user, kind, targetID string) error {
	if kind != chat.Direct.String() && kind != chat.Room.String() {
		return errors.Errorf("unknown kind %q, expected %s or %s", kind,
			chat.Direct, chat.Room)
	}
	if targetID == "" {
		return errors.New("a target is required")
	}

	l := history.Open(history.Path(dir, user, kind, targetID))
	defer l.Close()

	list, skipped, err := l.Replay()
	if err != nil {
		return err
	}

	for _, m := range list {
		fmt.Fprintln(w, formatMessage(m))
	}
	fmt.Fprintf(w, "%d messages", len(list))
	if skipped > 0 {
		fmt.Fprintf(w, ", %d malformed records skipped", skipped)
	}
	fmt.Fprintln(w)
	return nil
}

func init() {
	historyCmd.Flags().StringP(targetFlag, "t", "",
		"ID of the room or peer")
	viper.BindPFlag(targetFlag, historyCmd.Flags().Lookup(targetFlag))

	historyCmd.Flags().StringP(kindFlag, "k", chat.Room.String(),
		"Kind of the target, User or Room")
	viper.BindPFlag(kindFlag, historyCmd.Flags().Lookup(kindFlag))

	rootCmd.AddCommand(historyCmd)
}
