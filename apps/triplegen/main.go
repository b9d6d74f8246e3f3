//
// main.go
//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/markkurossi/mascot"
	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/spdz"
	"github.com/markkurossi/mascot/timing"
	"github.com/markkurossi/text/superscript"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type params struct {
	cfg     *env.Config
	count   int
	batches int
	output  string
	verbose bool
}

func main() {
	numParties := flag.Int("n", 2, "number of parties in local mode")
	count := flag.Int("t", 1024, "number of triples per batch")
	batches := flag.Int("b", 1, "number of batches")
	groupSize := flag.Int("g", env.DefaultGroupSize, "triple group size")
	modulus := flag.String("modulus", "", "field modulus in decimal")
	output := flag.String("o", "", "write triples to `prefix`-ID.cbor")
	verbose := flag.Bool("v", false, "verbose output")
	id := flag.Int("id", -1, "party id in network mode")
	peers := flag.String("peers", "",
		"comma-separated host:port addresses of all parties")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to `file`")
	flag.Parse()

	log.SetFlags(0)

	if len(*cpuprofile) > 0 {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).
		With().Timestamp().Logger()

	f := field.Default()
	if len(*modulus) > 0 {
		p, ok := new(big.Int).SetString(*modulus, 10)
		if !ok {
			log.Fatalf("invalid modulus: %s", *modulus)
		}
		var err error
		f, err = field.New(p)
		if err != nil {
			log.Fatal(err)
		}
	}

	cfg := &env.Config{
		Field:     f,
		GroupSize: *groupSize,
		BatchSize: *count,
		Logger:    &logger,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	p := &params{
		cfg:     cfg,
		count:   *count,
		batches: *batches,
		output:  *output,
		verbose: *verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if *id < 0 {
		err = runLocal(ctx, p, *numParties)
	} else {
		err = runNetwork(ctx, p, *id, strings.Split(*peers, ","), logger)
	}
	if err != nil {
		log.Fatal(err)
	}
}

type result struct {
	key     field.Element
	triples []spdz.Triple
	timing  *timing.Timing
	stats   p2p.IOStats
}

func runLocal(ctx context.Context, p *params, numParties int) error {
	if numParties < 2 {
		return fmt.Errorf("invalid number of parties: %d", numParties)
	}
	fmt.Printf("Generating %d×%d triples with %d parties over %v\n",
		p.batches, p.count, numParties, p.cfg.GetField())

	nws := p2p.NewLocalNetworks(numParties)
	results := make([]*result, numParties)

	g, ctx := errgroup.WithContext(ctx)
	for id := range nws {
		id := id
		g.Go(func() error {
			defer nws[id].Close()
			r, err := generate(ctx, p, nws[id])
			if err != nil {
				return fmt.Errorf("party %s: %w", superscript.Itoa(id), err)
			}
			results[id] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := verify(p.cfg.GetField(), results); err != nil {
		return err
	}
	fmt.Printf("Verified %d triples\n", len(results[0].triples))

	results[0].timing.Print(os.Stdout, results[0].stats)
	return nil
}

func runNetwork(ctx context.Context, p *params, id int, peers []string,
	logger zerolog.Logger) error {

	if len(peers) < 2 || id >= len(peers) {
		return fmt.Errorf("invalid peers for party %d: %v", id, peers)
	}
	nw, err := p2p.NewNetwork(peers[id], id, len(peers),
		logger.With().Int("party", id).Logger())
	if err != nil {
		return err
	}
	defer nw.Close()

	for peer, addr := range peers {
		if peer == id {
			continue
		}
		if err := nw.AddPeer(ctx, addr, peer); err != nil {
			return fmt.Errorf("peer %s: %w", superscript.Itoa(peer), err)
		}
	}
	fmt.Printf("Party%s: connected to %d peers\n", superscript.Itoa(id),
		len(peers)-1)

	r, err := generate(ctx, p, nw)
	if err != nil {
		return err
	}
	r.timing.Print(os.Stdout, r.stats)
	return nil
}

func generate(ctx context.Context, p *params, nw *p2p.Network) (
	*result, error) {

	session, err := mascot.New(p.cfg, nw, nil)
	if err != nil {
		return nil, err
	}
	session.Timing = timing.New()
	if err := session.Initialize(ctx); err != nil {
		return nil, err
	}

	r := &result{
		key:    session.MacKeyShare(),
		timing: session.Timing,
	}
	for b := 0; b < p.batches; b++ {
		triples, err := session.Triples(ctx, p.count)
		if err != nil {
			return nil, err
		}
		r.triples = append(r.triples, triples...)
		if p.verbose {
			fmt.Printf("Party%s: batch %d: %d triples\n",
				session.IDString(), b, len(triples))
		}
	}
	r.stats = session.Stats()

	if len(p.output) > 0 {
		name := fmt.Sprintf("%s-%d.cbor", p.output, session.ID())
		if err := writeTriples(name, p.cfg.GetField(), r.triples); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func writeTriples(name string, f *field.Field, triples []spdz.Triple) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := spdz.WriteTriples(file, f, triples); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func verify(f *field.Field, results []*result) error {
	var keys []field.Element
	for _, r := range results {
		keys = append(keys, r.key)
	}
	alpha := f.Sum(keys)

	open := func(get func(t spdz.Triple) spdz.Share, i int) (
		field.Element, error) {

		var shares []spdz.Share
		for _, r := range results {
			shares = append(shares, get(r.triples[i]))
		}
		value := f.Sum(spdz.Values(shares))
		if !f.Sum(spdz.Macs(shares)).Equal(value.Mul(alpha)) {
			return value, errors.New("MAC mismatch")
		}
		return value, nil
	}

	for i := range results[0].triples {
		a, err := open(func(t spdz.Triple) spdz.Share { return t.A }, i)
		if err != nil {
			return fmt.Errorf("triple %d: a: %w", i, err)
		}
		b, err := open(func(t spdz.Triple) spdz.Share { return t.B }, i)
		if err != nil {
			return fmt.Errorf("triple %d: b: %w", i, err)
		}
		c, err := open(func(t spdz.Triple) spdz.Share { return t.C }, i)
		if err != nil {
			return fmt.Errorf("triple %d: c: %w", i, err)
		}
		if !c.Equal(a.Mul(b)) {
			return fmt.Errorf("triple %d: %v·%v != %v", i, a, b, c)
		}
	}
	return nil
}
