package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"

	"github.com/yeqown/kvlite"
)

// vaxRand is the VAX linear congruential generator, x = 69069x + 362437.
type vaxRand struct {
	x uint64
}

func newVaxRand() *vaxRand { return &vaxRand{x: 123456789} }

func (r *vaxRand) next() uint64 {
	r.x = 69069*r.x + 362437
	return r.x
}

// pair returns a decimal key and value, the key is the low 32 bits taken as
// a signed integer.
func (r *vaxRand) pair() (key, value []byte) {
	key = []byte(strconv.Itoa(int(int32(r.next()))))
	value = []byte(strconv.FormatUint(r.next(), 10))
	return key, value
}

func newBenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "fill an empty database with random pairs and run the post-save scenario",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "n",
				Usage: "number of random pairs",
				Value: 100000,
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "save a snapshot after the random pairs",
			},
		},
		Action: func(c *cli.Context) error {
			return runBench(c.App.Writer, dbFromContext(c), c.Int("n"), c.Bool("save"))
		},
	}
}

func runBench(w io.Writer, db *kvlite.DB, n int, save bool) error {
	fmt.Fprintf(w, "size: %d\n", db.Size())
	if err := db.CheckValidity(); err != nil {
		return err
	}

	if db.Size() == 0 {
		rng := newVaxRand()
		for i := 0; i < n; i++ {
			if err := db.Insert(rng.pair()); err != nil {
				return errors.Wrapf(err, "insert #%d", i)
			}
			if i%10000 == 0 {
				fmt.Fprintln(w, i)
			}
		}

		if save {
			if err := db.Save(); err != nil {
				return err
			}
		}

		// journaled after the save
		for _, kv := range [][2]string{{"1", "11111"}, {"2", "22222"}, {"3", "33333"}} {
			if err := db.Insert([]byte(kv[0]), []byte(kv[1])); err != nil {
				return err
			}
		}
		if err := db.Remove([]byte("1")); err != nil {
			return err
		}
	}

	if _, err := db.Lookup([]byte("1")); errors.Is(err, kvlite.ErrKeyNotFound) {
		fmt.Fprintln(w, "1 doesn't exist in DB.. That is good!")
	} else {
		fmt.Fprintln(w, "1 exists in DB.. That is BAD!")
	}

	if value, err := db.Lookup([]byte("3")); err == nil {
		fmt.Fprintf(w, "3 exists in DB with %q.. That is good!\n", value)
	} else {
		fmt.Fprintln(w, "3 doesn't exist in DB.. That is bad!")
	}

	fmt.Fprintf(w, "size: %d\n", db.Size())
	if err := db.CheckValidity(); err != nil {
		return err
	}
	fmt.Fprintln(w, "valid")

	return nil
}
