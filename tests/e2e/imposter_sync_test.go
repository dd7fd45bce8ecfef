package e2e_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mb-route-sync/clients/mountebank"
	"mb-route-sync/imposter"
	"mb-route-sync/models"
	"mb-route-sync/routes"
	"mb-route-sync/synchronizer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const imposterPort = 4545

const greetingSOAPResponse = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tem="http://tempuri.org/">
  <soapenv:Body>
    <tem:HelloWorldResponse>
      <tem:Result>%s</tem:Result>
    </tem:HelloWorldResponse>
  </soapenv:Body>
</soapenv:Envelope>`

var _ = Describe("Imposter synchronization", func() {
	var (
		ctx    context.Context
		client *mountebank.Client
		imp    *imposter.Imposter
		seen   []synchronizer.State
	)

	BeforeEach(func() {
		fakeMountebank.Reset()
		ctx = context.Background()
		seen = nil

		client = mountebank.NewClient(fakeMountebank.URL(), 2*time.Second)
		Expect(client.WaitForMountebank(ctx, 5*time.Second)).To(Succeed())

		syncer := synchronizer.New(client,
			synchronizer.WithCallTimeout(time.Second),
			synchronizer.WithStateObserver(func(_ routes.Descriptor, _, to synchronizer.State) {
				seen = append(seen, to)
			}),
		)
		var err error
		imp, err = imposter.New(imposterPort, "http", "users", syncer)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("status code update after create", func() {
		It("deletes the known port and recreates it with the new status", func() {
			By("Creating the imposter with GET /users -> 200")
			Expect(imp.AddRoute("/users", "GET", routes.Response{StatusCode: 200, Headers: map[string]string{}, Body: "ok"})).To(Succeed())
			_, err := imp.Create(ctx)
			Expect(err).NotTo(HaveOccurred())

			resp, ok := fakeMountebank.Respond(imposterPort, "GET", "/users")
			Expect(ok).To(BeTrue())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			By("Updating the status code to 404")
			_, err = imp.UpdateStatusCode(ctx, "/users", "GET", 404)
			Expect(err).NotTo(HaveOccurred())

			Expect(fakeMountebank.Calls()).To(Equal([]string{
				"GET /imposters",
				"POST /imposters",
				"DELETE /imposters/4545",
				"POST /imposters",
			}))
			Expect(seen).To(Equal([]synchronizer.State{
				synchronizer.Deleting,
				synchronizer.DeleteConfirmedNonEmpty,
				synchronizer.Creating,
				synchronizer.Done,
			}))

			remote, ok := fakeMountebank.Imposter(imposterPort)
			Expect(ok).To(BeTrue())
			Expect(remote.Name).To(Equal("users"))
			Expect(remote.Stubs).To(HaveLen(1))
			Expect(remote.Stubs[0].Predicates[0].Equals).To(Equal(&models.EqualsPredicate{Method: "GET", Path: "/users"}))
			Expect(remote.Stubs[0].Responses[0].Is.StatusCode).To(Equal(http.StatusNotFound))
			Expect(remote.Stubs[0].Responses[0].Is.Body).To(Equal("ok"))

			resp, _ = fakeMountebank.Respond(imposterPort, "GET", "/users")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Context("path normalization", func() {
		It("stores and sends a path given without a leading slash as /users", func() {
			Expect(imp.AddRoute("users", "GET", routes.Response{StatusCode: 200, Headers: map[string]string{}})).To(Succeed())
			Expect(imp.Inspect()).To(HaveKey("/users"))
			Expect(imp.Inspect()).NotTo(HaveKey("users"))

			_, err := imp.Create(ctx)
			Expect(err).NotTo(HaveOccurred())

			remote, err := client.GetImposter(ctx, imposterPort)
			Expect(err).NotTo(HaveOccurred())
			Expect(remote.Stubs[0].Predicates[0].Equals.Path).To(Equal("/users"))
		})
	})

	Context("replace without a prior create", func() {
		It("stops after the delete and reports a stale delete", func() {
			Expect(imp.AddRoute("/users", "GET", routes.Response{StatusCode: 200, Headers: map[string]string{}})).To(Succeed())

			_, err := imp.UpdateBody(ctx, "/users", "GET", "never sent")
			Expect(err).To(MatchError(synchronizer.ErrStaleDelete))
			Expect(fakeMountebank.Calls()).NotTo(ContainElement("POST /imposters"))
			Expect(seen).To(Equal([]synchronizer.State{synchronizer.Deleting, synchronizer.DeleteConfirmedEmpty}))

			_, exists := fakeMountebank.Imposter(imposterPort)
			Expect(exists).To(BeFalse())
		})
	})

	Context("remote failures", func() {
		BeforeEach(func() {
			Expect(imp.AddRoute("/users", "GET", routes.Response{StatusCode: 200, Headers: map[string]string{}})).To(Succeed())
			_, err := imp.Create(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not create when the delete fails", func() {
			fakeMountebank.FailNext(http.MethodDelete, http.StatusInternalServerError)

			_, err := imp.UpdateStatusCode(ctx, "/users", "GET", 500)
			Expect(err).To(MatchError(synchronizer.ErrRemote))
			Expect(err.(*synchronizer.RemoteError).Op).To(Equal("delete"))
			Expect(err.(*synchronizer.RemoteError).StatusCode).To(Equal(http.StatusInternalServerError))

			remote, ok := fakeMountebank.Imposter(imposterPort)
			Expect(ok).To(BeTrue())
			Expect(remote.Stubs[0].Responses[0].Is.StatusCode).To(Equal(http.StatusOK))
		})

		It("reports a failing create after a confirmed delete", func() {
			fakeMountebank.FailNext(http.MethodPost, http.StatusBadRequest)

			_, err := imp.UpdateStatusCode(ctx, "/users", "GET", 500)
			Expect(err).To(MatchError(synchronizer.ErrRemote))
			Expect(err.(*synchronizer.RemoteError).Op).To(Equal("create"))
			Expect(seen).To(HaveLen(4))
			Expect(seen[len(seen)-1]).To(Equal(synchronizer.CreateFailed))
		})

		It("never reaches the network for a local lookup miss", func() {
			before := fakeMountebank.Calls()
			_, err := imp.UpdateStatusCode(ctx, "/orders", "GET", 404)
			Expect(err).To(MatchError(routes.ErrNotFound))
			Expect(fakeMountebank.Calls()).To(Equal(before))
		})
	})

	Context("XML bodies", func() {
		It("pushes a SOAP response body unchanged", func() {
			Expect(imp.AddRoute("/soap", "POST", routes.Response{
				StatusCode: 200,
				Headers:    map[string]string{"Content-Type": "text/xml"},
				Body:       fmt.Sprintf(greetingSOAPResponse, "Hello Gopher from Mountebank!"),
			})).To(Succeed())
			_, err := imp.Create(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = imp.UpdateBody(ctx, "/soap", "POST", fmt.Sprintf(greetingSOAPResponse, "Hello again"))
			Expect(err).NotTo(HaveOccurred())

			resp, ok := fakeMountebank.Respond(imposterPort, "POST", "/soap")
			Expect(ok).To(BeTrue())
			Expect(resp.Headers).To(HaveKeyWithValue("Content-Type", "text/xml"))
			Expect(resp.Body).To(ContainXMLElementWithValue("//tem:HelloWorldResponse/tem:Result", "Hello again"))
			Expect(resp.Body).NotTo(ContainXMLElementWithValue("//tem:HelloWorldResponse/tem:Result", "Hello Gopher from Mountebank!"))
			Expect(resp.Body).To(ContainXMLElement("//soapenv:Body"))
		})
	})
})
