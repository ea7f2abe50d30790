package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

func TestWriteHeartbeatProducerUsesProducerPeriodSignal(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeHeartbeatProducer(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "HeartbeatInterrupt")
	assert.Contains(t, out, `\ProducerHeartbeatTime\`)
}

func TestWriteHeartbeatConsumersTiesLowWithoutConsumers(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeHeartbeatConsumers(&buf, p)
	assert.True(t, strings.Contains(buf.String(), "HeartbeatConsumerTimeout <= '0';"))
}
