// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the personachat command line.
//
// Commands:
//
//	personachat [chat]            interactive terminal chat (default)
//	personachat send MESSAGE      send one message, print the reply
//	personachat config show       print the effective configuration
//	personachat config path       print the config file location
//	personachat config init       write a default config file
//	personachat config get KEY    print one value
//	personachat config set KEY V  change one value in the config file
//	personachat version           print version information
//
// Global flags --config, --server, --session and --log-level override the
// configuration file and PERSONACHAT_* environment variables. A .env file in
// the working directory is loaded before anything else.
package cli
