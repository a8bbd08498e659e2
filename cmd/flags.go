////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

// This is a comprehensive list of CLI flag name constants. Organized by
// subcommand, with root level CLI flags at the top of the list. Pulling flags
// using Viper should use the constants defined here.
const (
	//////////////// Root flags ///////////////////////////////////////////////

	// Storage flags
	sessionFlag  = "session"
	passwordFlag = "password"
	historyFlag  = "history-dir"

	// Identity
	userFlag = "user"

	// Log flags
	logLevelFlag = "logLevel"
	logFlag      = "log"

	// Config
	configFlag = "config"

	// Misc
	profileCpuFlag = "profile-cpu"
	metricsFlag    = "metrics-addr"

	///////////////// Run flags ///////////////////////////////////////////////
	roomFlag         = "room"
	peerFlag         = "peer"
	echoFlag         = "echo"
	readDelayFlag    = "read-delay"
	notifyDelayFlag  = "notify-delay"
	notifyLimitFlag  = "notify-limit"
	historyLimitFlag = "history-limit"
	restoreRateFlag  = "restore-rate"
	windowFlag       = "window"

	///////////////// History subcommand flags ////////////////////////////////
	targetFlag = "target"
	kindFlag   = "kind"
)
