package warp

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMQTT_Disabled(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")

	client, err := InitMQTT(testConfig(), func(*FrameJob, error) {})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitMQTT_NoHandler(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	config := testConfig()
	config.MQTT.Broker = "tcp://localhost:1883"

	_, err := InitMQTT(config, nil)
	assert.Error(t, err)
}

func TestMQTTClient_IsConnected(t *testing.T) {
	client := &MQTTClient{}
	assert.False(t, client.IsConnected(), "New client should not be connected")

	client.setConnected(true)
	assert.True(t, client.IsConnected(), "Client should be connected after setConnected(true)")

	client.setConnected(false)
	assert.False(t, client.IsConnected(), "Client should not be connected after setConnected(false)")
}

func TestJobTopic(t *testing.T) {
	assert.Equal(t, DefaultJobTopic, jobTopic(nil))
	assert.Equal(t, DefaultJobTopic, jobTopic(&Config{}))
	assert.Equal(t, "rig/jobs", jobTopic(&Config{MQTT: MQTTConfig{JobTopic: "rig/jobs"}}))
}

func TestMQTTClient_OnConnectSubscribesAndDispatches(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	var (
		mu   sync.Mutex
		jobs []*FrameJob
		errs []error
	)
	handler := func(job *FrameJob, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		jobs = append(jobs, job)
	}

	client := newMQTTClientWithMock(mock, &Config{MQTT: MQTTConfig{JobTopic: "rig/jobs"}}, handler)
	client.onConnect(mock)
	assert.True(t, client.IsConnected())

	mock.SimulateMessage("rig/jobs", []byte(`{"id":"j1","camera":"front","angularVelocity":[0,1,0]}`))
	mock.SimulateMessage("rig/jobs", []byte(`not json`))
	mock.SimulateMessage("other/topic", []byte(`{"id":"ignored","camera":"front","angularVelocity":[0,1,0]}`))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].ID)
	assert.Len(t, errs, 1)
}

func TestMQTTClient_OnConnectSubscribeError(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	mock.SetSubscribeError(errors.New("denied"))

	called := false
	client := newMQTTClientWithMock(mock, nil, func(*FrameJob, error) { called = true })
	client.onConnect(mock)

	mock.SimulateMessage(DefaultJobTopic, []byte(`{"camera":"front","angularVelocity":[0,0,0]}`))
	assert.False(t, called, "no handler should be registered after a failed subscribe")
}

func TestMQTTClient_ConnectionLostAndDisconnect(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	client := newMQTTClientWithMock(mock, nil, func(*FrameJob, error) {})
	client.onConnect(mock)

	client.onConnectionLost(mock, errors.New("broker went away"))
	assert.False(t, client.IsConnected())

	client.setConnected(true)
	client.Disconnect()
	assert.False(t, client.IsConnected())
	assert.False(t, mock.IsConnected())
	assert.Same(t, mock, client.GetClient())
}
