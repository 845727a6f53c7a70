package watsonx_test

import (
	"time"

	"github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

var _ = Describe("Config", func() {
	It("fills default endpoints", func() {
		cfg := watsonx.NewConfig("key", "proj")
		Expect(cfg.APIURL).To(Equal(models.DefaultAPIURL))
		Expect(cfg.IAMURL).To(Equal(models.DefaultIAMURL))
		Expect(cfg.APIVersion).To(Equal(models.DefaultAPIVersion))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("names every missing field", func() {
		err := watsonx.NewConfig("", "").Validate()
		Expect(err).To(MatchError(wxerrors.ErrConfiguration))
		Expect(err.Error()).To(ContainSubstring("APIKey is required"))
		Expect(err.Error()).To(ContainSubstring("ProjectID is required"))
	})

	It("rejects a malformed API URL", func() {
		cfg := watsonx.NewConfig("key", "proj")
		cfg.APIURL = "not a url"
		Expect(cfg.Validate()).To(MatchError(wxerrors.ErrConfiguration))
	})

	It("refuses to build a client from an invalid config", func() {
		_, err := watsonx.New(watsonx.NewConfig("", "proj"))
		Expect(err).To(MatchError(wxerrors.ErrConfiguration))
	})

	It("reads the watsonx section from viper", func() {
		v := viper.New()
		v.Set("watsonx.api_key", "key")
		v.Set("watsonx.project_id", "proj")
		v.Set("watsonx.api_url", "https://eu-de.ml.cloud.ibm.com")
		v.Set("watsonx.timeout_secs", 30)

		cfg := watsonx.ConfigFromViper(v)
		Expect(cfg.APIKey).To(Equal("key"))
		Expect(cfg.ProjectID).To(Equal("proj"))
		Expect(cfg.APIURL).To(Equal("https://eu-de.ml.cloud.ibm.com"))
		Expect(cfg.APIVersion).To(Equal(models.DefaultAPIVersion))
		Expect(cfg.Timeout).To(Equal(30 * time.Second))
	})
})

var _ = Describe("GenerationConfig", func() {
	It("clamps max tokens", func() {
		Expect(watsonx.DefaultGenerationConfig().WithMaxTokens(1 << 20).MaxTokens).To(Equal(models.MaxTokensLimit))
		Expect(watsonx.DefaultGenerationConfig().WithMaxTokens(10).MaxTokens).To(Equal(uint32(10)))
	})

	It("provides presets", func() {
		Expect(watsonx.LongForm().MaxTokens).To(Equal(models.MaxTokensLimit))
		Expect(watsonx.LongForm().Timeout).To(Equal(300 * time.Second))
		Expect(watsonx.QuickResponse().MaxTokens).To(Equal(models.QuickResponseMaxTokens))
		Expect(watsonx.QuickResponse().Timeout).To(Equal(30 * time.Second))
	})

	It("reads the model and token budget from viper", func() {
		v := viper.New()
		v.Set("watsonx.model", "ibm/granite-3-8b-instruct")
		v.Set("watsonx.max_tokens", 512)

		cfg := watsonx.GenerationConfigFromViper(v)
		Expect(cfg.ModelID).To(Equal("ibm/granite-3-8b-instruct"))
		Expect(cfg.MaxTokens).To(Equal(uint32(512)))
		Expect(cfg.Timeout).To(Equal(models.DefaultTimeout))
	})

	It("does not share stop sequences between copies", func() {
		seqs := []string{"a"}
		cfg := watsonx.DefaultGenerationConfig().WithStopSequences(seqs...)
		seqs[0] = "b"
		Expect(cfg.StopSequences).To(Equal([]string{"a"}))
	})
})
