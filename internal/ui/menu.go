package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/safe-ro/safe-ro/internal/pipeline"
)

type menuOption struct {
	title   string
	handler func(ctx context.Context) error
}

// Menu is the interactive front end of the CLI.
type Menu struct {
	*Console
	runner     *pipeline.Runner
	resultDir  string
	downsample int
}

func NewMenu(in io.Reader, out io.Writer, runner *pipeline.Runner, resultDir string, downsample int) *Menu {
	if downsample < 1 {
		downsample = 1
	}
	return &Menu{
		Console:    NewConsole(in, out),
		runner:     runner,
		resultDir:  resultDir,
		downsample: downsample,
	}
}

var errExit = errors.New("exit")

// Show displays the main menu until the user exits or the input ends.
func (m *Menu) Show(ctx context.Context) {
	menuOptions := []menuOption{
		{"Compute NDVI from RED and NIR bands", m.AnalyzeNDVI},
		{"Detect flooded area from a Sentinel-1 band", m.AnalyzeFlood},
		{"List high confidence fires from a FIRMS export", m.ListFires},
		{"Run the full pipeline", m.RunPipeline},
		{"View the list of monitored regions", m.ListRegions},
		{"Exit the application", func(context.Context) error { return errExit }},
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(m.out, "%s===================%s\n", ColorBlue, ColorReset)
		for i, opt := range menuOptions {
			fmt.Fprintf(m.out, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}

		choice, err := m.ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, errInputClosed) {
			return
		}
		if err != nil {
			m.PrintError(err.Error())
			continue
		}

		err = menuOptions[choice-1].handler(ctx)
		switch {
		case errors.Is(err, errExit):
			fmt.Fprintln(m.out, "Exiting...")
			return
		case errors.Is(err, errInputClosed):
			return
		case err != nil:
			m.PrintError(err.Error())
		}
	}
}
