// Package repl runs an interactive loop that reads one command line at a
// time and hands its arguments to an executor.
//
// Built-in commands:
//
//	help [PREFIX]   list commands, optionally those starting with PREFIX
//	history         print the commands entered so far
//	exit, quit      leave the loop
package repl
