////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package cmd initializes the CLI and config parsers as well as the logger.
package cmd

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/elixxir/deskchat/metrics"
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deskchat",
	Short: "Runs an interactive chat session with history and read tracking",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		profileOut := viper.GetString(profileCpuFlag)
		if profileOut != "" {
			p := profile.Start(profile.CPUProfile,
				profile.ProfilePath(profileOut), profile.NoShutdownHook)
			defer p.Stop()
		}

		initLog(viper.GetUint(logLevelFlag), viper.GetString(logFlag))
		jww.INFO.Printf(Version())

		if addr := viper.GetString(metricsFlag); addr != "" {
			go serveMetrics(addr)
		}

		if err := runSession(os.Stdin, os.Stdout); err != nil {
			jww.FATAL.Panicf("%+v", err)
		}
	},
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	jww.INFO.Printf("Serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		jww.ERROR.Printf("Metrics server stopped: %+v", err)
	}
}

// initConfig reads in the config file if one was set.
func initConfig() {
	cfgFile := viper.GetString(configFlag)
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		jww.FATAL.Panicf("Failed to read config file %s: %+v", cfgFile, err)
	}
}

func initLog(threshold uint, logPath string) {
	if logPath != "-" && logPath != "" {
		// Disable stdout output
		jww.SetStdoutOutput(io.Discard)
		// Use log file
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err.Error())
		}
		jww.SetLogOutput(logOutput)
	}

	if threshold > 1 {
		jww.INFO.Printf("log level set to: TRACE")
		jww.SetStdoutThreshold(jww.LevelTrace)
		jww.SetLogThreshold(jww.LevelTrace)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else if threshold == 1 {
		jww.INFO.Printf("log level set to: DEBUG")
		jww.SetStdoutThreshold(jww.LevelDebug)
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		jww.INFO.Printf("log level set to: INFO")
		jww.SetStdoutThreshold(jww.LevelInfo)
		jww.SetLogThreshold(jww.LevelInfo)
	}
}

// init is the initialization function for Cobra which defines commands
// and flags.
func init() {
	cobra.OnInitialize(initConfig)

	// NOTE: The point of init() is to be declarative.
	// There is one init in each sub command. Do not put variable declarations
	// here, and ensure all the Flags are of the *P variety, unless there's a
	// very good reason not to have them as local params to sub command."
	rootCmd.PersistentFlags().StringP(configFlag, "c", "",
		"Path to a config file overriding the flag defaults")
	viper.BindPFlag(configFlag, rootCmd.PersistentFlags().Lookup(configFlag))

	rootCmd.PersistentFlags().UintP(logLevelFlag, "v", 0,
		"Verbose mode for debugging")
	viper.BindPFlag(logLevelFlag, rootCmd.PersistentFlags().Lookup(logLevelFlag))

	rootCmd.PersistentFlags().StringP(logFlag, "l", "-",
		"Path to the log output path (- is stdout)")
	viper.BindPFlag(logFlag, rootCmd.PersistentFlags().Lookup(logFlag))

	rootCmd.PersistentFlags().StringP(sessionFlag, "s", "session",
		"Sets the directory of the key-value store")
	viper.BindPFlag(sessionFlag, rootCmd.PersistentFlags().Lookup(sessionFlag))

	rootCmd.PersistentFlags().StringP(passwordFlag, "p", "",
		"Password to the key-value store")
	viper.BindPFlag(passwordFlag, rootCmd.PersistentFlags().Lookup(passwordFlag))

	rootCmd.PersistentFlags().String(historyFlag, "history",
		"Directory holding the history logs")
	viper.BindPFlag(historyFlag, rootCmd.PersistentFlags().Lookup(historyFlag))

	rootCmd.PersistentFlags().StringP(userFlag, "u", "me@localhost",
		"Address of the logged-in user")
	viper.BindPFlag(userFlag, rootCmd.PersistentFlags().Lookup(userFlag))

	rootCmd.Flags().StringSlice(roomFlag, nil,
		"Rooms to join at startup, in addition to the restored ones")
	viper.BindPFlag(roomFlag, rootCmd.Flags().Lookup(roomFlag))

	rootCmd.Flags().StringSlice(peerFlag, nil,
		"Peers to open direct chats with at startup")
	viper.BindPFlag(peerFlag, rootCmd.Flags().Lookup(peerFlag))

	rootCmd.Flags().Bool(echoFlag, true,
		"Have direct chat peers answer every message with a copy")
	viper.BindPFlag(echoFlag, rootCmd.Flags().Lookup(echoFlag))

	rootCmd.Flags().Duration(readDelayFlag, readstateDefaults.Delay,
		"How long messages must stay visible before they are marked read")
	viper.BindPFlag(readDelayFlag, rootCmd.Flags().Lookup(readDelayFlag))

	rootCmd.Flags().Duration(notifyDelayFlag, notificationDefaults.DismissDelay,
		"How long the notification popup stays after the last message")
	viper.BindPFlag(notifyDelayFlag, rootCmd.Flags().Lookup(notifyDelayFlag))

	rootCmd.Flags().Int(notifyLimitFlag, notificationDefaults.DisplayLimit,
		"Messages shown in the popup before it collapses to a summary")
	viper.BindPFlag(notifyLimitFlag, rootCmd.Flags().Lookup(notifyLimitFlag))

	rootCmd.Flags().Int(historyLimitFlag, chatDefaults.HistoryLimit,
		"Most messages a room replays on join")
	viper.BindPFlag(historyLimitFlag, rootCmd.Flags().Lookup(historyLimitFlag))

	rootCmd.Flags().Int(restoreRateFlag, chatDefaults.RestoreRate,
		"Joins per second when restoring the recent targets")
	viper.BindPFlag(restoreRateFlag, rootCmd.Flags().Lookup(restoreRateFlag))

	rootCmd.Flags().Int(windowFlag, defaultWindow,
		"Number of message lines the terminal view shows")
	viper.BindPFlag(windowFlag, rootCmd.Flags().Lookup(windowFlag))

	rootCmd.Flags().String(metricsFlag, "",
		"Address to serve prometheus metrics on, disabled if empty")
	viper.BindPFlag(metricsFlag, rootCmd.Flags().Lookup(metricsFlag))

	rootCmd.Flags().String(profileCpuFlag, "",
		"Enable cpu profiling to this directory")
	viper.BindPFlag(profileCpuFlag, rootCmd.Flags().Lookup(profileCpuFlag))
}
