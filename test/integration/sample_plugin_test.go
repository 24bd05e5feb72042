// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:build integration

package integration

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"

	"github.com/superspeeder/neuron/internal/manifest"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
)

var _ = Describe("Sample plugin", func() {
	var manifestPath string

	BeforeEach(func() {
		manifestPath = writeManifest(GinkgoT().TempDir())
	})

	Describe("in process", func() {
		var (
			logs *gbytes.Buffer
			rt   *neuronrt.Runtime
		)

		BeforeEach(func() {
			logs = gbytes.NewBuffer()
			logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			rt = neuronrt.New(neuronrt.WithLogger(logger), neuronrt.WithLogLevel(slog.LevelDebug))
		})

		AfterEach(func() {
			Expect(rt.Close(context.Background())).To(Succeed())
		})

		It("constructs, loads and unloads through the Go plugin backend", func() {
			ctx := context.Background()
			app, err := manifest.Load(manifestPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(rt.ConstructAll(ctx, app)).To(Succeed())
			Expect(rt.Names()).To(Equal([]string{"sample"}))

			info, ok := rt.Entry("sample")
			Expect(ok).To(BeTrue())
			Expect(info.Path).To(Equal(samplePlugin))
			Expect(info.State).To(Equal(neuronrt.Unloaded))

			Expect(rt.LoadAll(ctx)).To(Succeed())
			state, _ := rt.State("sample")
			Expect(state).To(Equal(neuronrt.Loaded))
			Expect(logs).To(gbytes.Say("sample plugin loaded"))
			Expect(logs).To(gbytes.Say("runtime=" + neuronrt.RuntimeName))
			Expect(logs).To(gbytes.Say("assets_path=assets/sample"))

			Expect(rt.UnloadAll(ctx)).To(Succeed())
			state, _ = rt.State("sample")
			Expect(state).To(Equal(neuronrt.Unloaded))
			Expect(logs).To(gbytes.Say("sample plugin unloaded"))

			Expect(rt.Close(ctx)).To(Succeed())
			Expect(logs).To(gbytes.Say("sample plugin destroyed"))
			Expect(rt.Len()).To(BeZero())
		})
	})

	Describe("through the neuron command", func() {
		It("loads and shuts down with --once", func() {
			cmd := exec.Command(neuronBin, "run", "--once", "--manifest", manifestPath, "--log-level", "debug")
			session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 30*time.Second).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say("1 of 1 plugins loaded"))
			Expect(session.Err).To(gbytes.Say("sample plugin loaded"))
			Expect(session.Err).To(gbytes.Say("sample plugin unloaded"))
		})

		It("unloads on SIGTERM", func() {
			cmd := exec.Command(neuronBin, "run", "--manifest", manifestPath)
			session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session.Err, 30*time.Second).Should(gbytes.Say("runtime ready"))
			session.Terminate()

			Eventually(session, 10*time.Second).Should(gexec.Exit(0))
			Expect(session.Err).To(gbytes.Say("sample plugin unloaded"))
		})

		It("lists the constructed plugin", func() {
			session, err := gexec.Start(exec.Command(neuronBin, "list", "--manifest", manifestPath), GinkgoWriter, GinkgoWriter)
			Expect(err).NotTo(HaveOccurred())

			Eventually(session, 30*time.Second).Should(gexec.Exit(0))
			Expect(session.Out).To(gbytes.Say(`NAME\s+STATE`))
			Expect(session.Out).To(gbytes.Say(`sample\s+unloaded\s+go`))
		})
	})
})
