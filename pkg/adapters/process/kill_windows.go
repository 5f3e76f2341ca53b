//go:build windows

package process

import "os/exec"

// killGroupOnCancel keeps the default cancellation; WaitDelay still bounds Run.
func killGroupOnCancel(*exec.Cmd) {}
