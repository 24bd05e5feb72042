// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package runtime_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/superspeeder/neuron/internal/loader"
	"github.com/superspeeder/neuron/internal/manifest"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
)

var _ = Describe("Plugin lifecycle", func() {
	var (
		ctx    context.Context
		dir    string
		opener *fakeOpener
		events *eventLog
		rt     *neuronrt.Runtime
	)

	addPlugin := func(file string, p *recordingPlugin) manifest.PluginSpecification {
		p.log = events
		path := libraryFile(dir, file)
		opener.add(&fakeLibrary{path: path, entry: entryFor(p, events), log: events})
		return manifest.PluginSpecification{BinaryPath: []string{path}}
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		opener = newFakeOpener()
		events = &eventLog{}
		rt = neuronrt.New(
			neuronrt.WithLogger(quietLogger()),
			neuronrt.WithOpeners(openers(opener)),
		)
	})

	AfterEach(func() {
		Expect(rt.Close(ctx)).To(Succeed())
	})

	Describe("constructing from a manifest", func() {
		It("fails with a path-resolution error and leaves the registry empty", func() {
			app := manifest.New()
			app.Add("demo", manifest.PluginSpecification{BinaryPath: []string{"./nonexistent.so"}})

			err := rt.ConstructAll(ctx, app)
			Expect(err).To(MatchError(neuronrt.ErrNoValidLibraryPath))
			Expect(rt.Names()).To(BeEmpty())
		})

		It("fails with a loading error when the library lacks the entry symbol", func() {
			path := libraryFile(dir, "libempty.so")
			opener.add(&fakeLibrary{path: path, entryErr: loader.ErrSymbolNotFound})

			_, err := rt.Construct(ctx, manifest.PluginSpecification{BinaryPath: []string{path}})
			Expect(err).To(MatchError(neuronrt.ErrLibraryLoading))
			Expect(rt.Len()).To(BeZero())
		})

		It("registers the plugin under its self-reported name", func() {
			app := manifest.New()
			app.Add("sample-plugin", addPlugin("libsample.so", &recordingPlugin{name: "sample"}))

			Expect(rt.ConstructAll(ctx, app)).To(Succeed())
			Expect(rt.Names()).To(Equal([]string{"sample"}))

			state, ok := rt.State("sample")
			Expect(ok).To(BeTrue())
			Expect(state).To(Equal(neuronrt.Unloaded))
		})
	})

	Describe("the sample scenario", func() {
		var sample *recordingPlugin

		BeforeEach(func() {
			sample = &recordingPlugin{name: "sample"}
			app := manifest.New()
			app.Add("sample", addPlugin("libsample.so", sample))
			Expect(rt.ConstructAll(ctx, app)).To(Succeed())
		})

		It("exposes the runtime identity through the loading context", func() {
			ok, err := rt.Load(ctx, "sample")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(sample.rtName).To(Equal("neuron-rt"))
			Expect(sample.rtVersion).NotTo(BeEmpty())
		})

		It("keeps the entry registered after unload", func() {
			Expect(rt.Load(ctx, "sample")).To(BeTrue())
			Expect(rt.Unload(ctx, "sample")).To(BeTrue())

			p, ok := rt.Lookup("sample")
			Expect(ok).To(BeTrue())
			Expect(p.Name()).To(Equal("sample"))

			state, _ := rt.State("sample")
			Expect(state).To(Equal(neuronrt.Unloaded))
		})
	})

	Describe("idempotent transitions", func() {
		var p *recordingPlugin

		BeforeEach(func() {
			p = &recordingPlugin{name: "demo"}
			_, err := rt.Construct(ctx, addPlugin("libdemo.so", p))
			Expect(err).NotTo(HaveOccurred())
		})

		It("invokes load exactly once across two calls", func() {
			Expect(rt.Load(ctx, "demo")).To(BeTrue())
			Expect(rt.Load(ctx, "demo")).To(BeTrue())

			loads, _ := p.counts()
			Expect(loads).To(Equal(1))
		})

		It("invokes unload exactly once across two calls", func() {
			Expect(rt.Load(ctx, "demo")).To(BeTrue())
			Expect(rt.Unload(ctx, "demo")).To(BeTrue())
			Expect(rt.Unload(ctx, "demo")).To(BeTrue())

			_, unloads := p.counts()
			Expect(unloads).To(Equal(1))
		})

		It("reports unknown names without mutating the registry", func() {
			Expect(rt.Load(ctx, "ghost")).To(BeFalse())
			Expect(rt.Unload(ctx, "ghost")).To(BeFalse())
			_, ok := rt.Lookup("ghost")
			Expect(ok).To(BeFalse())
			Expect(rt.Names()).To(Equal([]string{"demo"}))
		})
	})

	Describe("bulk transitions", func() {
		It("gives every entry exactly one loaded period", func() {
			plugins := []*recordingPlugin{{name: "one"}, {name: "two"}, {name: "three"}}
			for _, p := range plugins {
				_, err := rt.Construct(ctx, addPlugin("lib"+p.name+".so", p))
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(rt.LoadAll(ctx)).To(Succeed())
			Expect(rt.UnloadAll(ctx)).To(Succeed())

			for _, p := range plugins {
				state, _ := rt.State(p.name)
				Expect(state).To(Equal(neuronrt.Unloaded))
				loads, unloads := p.counts()
				Expect(loads).To(Equal(1))
				Expect(unloads).To(Equal(1))
			}
			Expect(events.all()).To(Equal([]string{
				"load one", "load two", "load three",
				"unload three", "unload two", "unload one",
			}))
		})
	})
})
