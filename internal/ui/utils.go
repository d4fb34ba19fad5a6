package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var errInputClosed = errors.New("input closed")

// Console reads answers from in and writes prompts to out.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// PrintWarning displays a warning message with consistent formatting
func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(c.out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func (c *Console) PrintError(message string) {
	fmt.Fprintf(c.out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func (c *Console) PrintSuccess(message string) {
	fmt.Fprintf(c.out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func (c *Console) PrintInfo(message string) {
	fmt.Fprintf(c.out, "%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a line with trimming. errInputClosed is returned once
// the input is exhausted.
func (c *Console) ReadString(prompt string) (string, error) {
	c.PrintInfo(prompt)
	input, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", errInputClosed
	}
	return strings.TrimSpace(input), nil
}

// ReadInt reads an integer with validation
func (c *Console) ReadInt(prompt string, min, max int) (int, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}

	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}

	return value, nil
}

// ReadOptionalFloat returns nil when the answer is empty.
func (c *Console) ReadOptionalFloat(prompt string) (*float64, error) {
	input, err := c.ReadString(prompt)
	if err != nil || input == "" {
		return nil, err
	}
	value, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", input)
	}
	return &value, nil
}

// ReadDownsample reads a downsample factor, defaulting to fallback.
func (c *Console) ReadDownsample(fallback int) (int, error) {
	input, err := c.ReadString(fmt.Sprintf("Enter the downsample factor [%d]: ", fallback))
	if err != nil {
		return 0, err
	}
	if input == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(input)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid downsample factor: %s. Please enter a positive integer", input)
	}
	return value, nil
}
