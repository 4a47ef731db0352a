package binlink

import "fmt"

func shScript(target string) string {
	return fmt.Sprintf("#!/bin/sh\nnode \"%s\" \"$@\"\nexit $?\n", target)
}

func cmdScript(target string) string {
	return fmt.Sprintf("@ECHO off\r\nnode \"%s\" %%*\r\n", target)
}

func ps1Script(target string) string {
	return fmt.Sprintf("#!/usr/bin/env pwsh\n& node \"%s\" $args\nexit $LASTEXITCODE\n", target)
}
