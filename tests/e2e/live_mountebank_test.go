package e2e_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mb-route-sync/clients/mountebank"
	"mb-route-sync/imposter"
	"mb-route-sync/routes"
	"mb-route-sync/synchronizer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// These specs need a running Mountebank, e.g. `mb --port 2525`, and
// MOUNTEBANK_BASE_URL pointing at it.
var _ = Describe("Live Mountebank", Ordered, Label("live"), func() {
	const livePort = 4590

	var (
		ctx    = context.Background()
		client *mountebank.Client
		imp    *imposter.Imposter
	)

	BeforeAll(func() {
		baseURL := os.Getenv("MOUNTEBANK_BASE_URL")
		if baseURL == "" {
			Skip("MOUNTEBANK_BASE_URL not set")
		}
		client = mountebank.NewClient(baseURL, 5*time.Second)
		Expect(client.WaitForMountebank(ctx, 30*time.Second)).To(Succeed(), "Mountebank did not become ready")

		// Leftovers from an earlier run would make the first create conflict.
		_, err := client.DeleteImposter(ctx, livePort)
		Expect(err).NotTo(HaveOccurred())

		imp, err = imposter.New(livePort, "http", "live-users", synchronizer.New(client, synchronizer.WithCallTimeout(5*time.Second)))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if client != nil {
			_, _ = client.DeleteImposter(ctx, livePort)
		}
	})

	get := func(path string) (int, string) {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", livePort, path))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body)
	}

	It("serves the created route", func() {
		Expect(imp.AddRoute("users", "GET", routes.Response{StatusCode: 200, Headers: map[string]string{"Content-Type": "application/json"}, Body: `{"users":[]}`})).To(Succeed())
		_, err := imp.Create(ctx)
		Expect(err).NotTo(HaveOccurred())

		status, body := get("/users")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"users":[]}`))
	})

	It("serves the new status code after an update", func() {
		_, err := imp.UpdateStatusCode(ctx, "/users", "GET", 404)
		Expect(err).NotTo(HaveOccurred())

		status, _ := get("/users")
		Expect(status).To(Equal(http.StatusNotFound))

		remote, err := client.GetImposter(ctx, livePort)
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.Name).To(Equal("live-users"))
	})

	It("clears recorded requests", func() {
		Expect(client.DeleteRequests(ctx, livePort)).To(Succeed())
		remote, err := client.GetImposter(ctx, livePort)
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.NumberOfRequests).To(BeZero())
	})
})
