package provider_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/internal/provider"
)

var _ = Describe("Registry", func() {
	var registry *provider.Registry

	BeforeEach(func() {
		registry = provider.NewRegistry(provider.NewDatadog(), provider.NewPagerDuty())
	})

	It("returns the normalizer for a registered provider", func() {
		n, err := registry.Get("datadog")
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Provider()).To(Equal("datadog"))
	})

	It("fails with ErrUnknownProvider for an unregistered key", func() {
		_, err := registry.Get("opsgenie")
		Expect(errors.Is(err, provider.ErrUnknownProvider)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("opsgenie"))
	})

	It("lists every registered provider key", func() {
		Expect(registry.Providers()).To(ConsistOf("datadog", "pagerduty"))
	})
})
