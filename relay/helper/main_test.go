package helper

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/relay/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAdaptor(t *testing.T) {
	assert.Equal(t, common.ProviderOpenAI, GetAdaptor(constant.APITypeOpenAI).GetChannelName())
	assert.Equal(t, common.ProviderAnthropic, GetAdaptor(constant.APITypeAnthropic).GetChannelName())
	assert.Equal(t, common.ProviderDeepseek, GetAdaptor(constant.APITypeDeepseek).GetChannelName())
	assert.Equal(t, common.ProviderBedrock, GetAdaptor(constant.APITypeBedrock).GetChannelName())
	assert.Nil(t, GetAdaptor(constant.APITypeDummy))

	models := ListModels()
	require.Len(t, models, 4)
	assert.Contains(t, models[common.ProviderDeepseek], "deepseek-chat")
	assert.Contains(t, models[common.ProviderBedrock], "claude-3-5-sonnet-20241022")
}

func TestPingData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	require.NoError(t, PingData(c))
	assert.Equal(t, ": PING\n\n", w.Body.String())
}
