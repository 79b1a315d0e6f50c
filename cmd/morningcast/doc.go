// Package main hosts the MorningCast CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds a structured
// logger and hands off to the internal packages: broadcast for daily runs,
// catalog and hook for the music library, maildigest and googleauth for the
// Google integrations, preflight for the doctor report and runstore for run
// history.
//
// Keep this package thin. New behaviour belongs in an internal package first
// and is surfaced here as a command or flag.
package main
