package resources

import (
	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/internal/graph"
	"github.com/runelabs/runeq-go/internal/streamapi"
)

// Every eager function takes an explicit *runeq.Client; nil falls back to
// the process default installed by runeq.Initialize.

func graphFor(c *runeq.Client) (*graph.Client, error) {
	c, err := orDefault(c)
	if err != nil {
		return nil, err
	}
	return c.Graph(), nil
}

func streamFor(c *runeq.Client) (*streamapi.Client, error) {
	c, err := orDefault(c)
	if err != nil {
		return nil, err
	}
	return c.Stream(), nil
}

func striveFor(c *runeq.Client) (*streamapi.Client, error) {
	c, err := orDefault(c)
	if err != nil {
		return nil, err
	}
	return c.Strive(), nil
}

func orDefault(c *runeq.Client) (*runeq.Client, error) {
	if c != nil {
		return c, nil
	}
	return runeq.Default()
}
