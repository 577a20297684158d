// Package ghoutput appends step outputs to the file named by GITHUB_OUTPUT.
package ghoutput
