package main

import (
	cli "github.com/urfave/cli/v2"

	"github.com/yeqown/kvlite"
)

const dbMetadataKey = "kvlite.db"

func contextWithDB(c *cli.Context, db *kvlite.DB) {
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[dbMetadataKey] = db
}

// dbFromContext returns the DB opened by the app's Before hook, nil if
// opening never happened.
func dbFromContext(c *cli.Context) *kvlite.DB {
	v, ok := c.App.Metadata[dbMetadataKey]
	if !ok {
		return nil
	}

	return v.(*kvlite.DB)
}
