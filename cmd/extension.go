package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	EnvRunFile  = "BT_RUN_FILE"
	EnvDatabase = "BT_DATABASE"
	EnvVerbose  = "BT_VERBOSE"
)

// RunExtension attempts to find and execute an external bt-<subcommand> binary, typically a
// strategy written in another language that produces matrices for 'bt replay'.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "bt-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		log.WithError(err).WithField("command", externalCmdName).Debug("external command not found")
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Pass global flags as environment variables
	cmd.Env = os.Environ()
	if *configFile != "" {
		cmd.Env = append(cmd.Env, EnvRunFile+"="+*configFile)
	}
	if *dbFile != "" {
		cmd.Env = append(cmd.Env, EnvDatabase+"="+*dbFile)
	}
	if *Verbose {
		cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))
	}

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
