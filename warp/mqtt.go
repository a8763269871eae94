package warp

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultJobTopic is subscribed when the config does not name one
const DefaultJobTopic = "warpguard/jobs"

// JobHandler is called for every message on the job topic.
// Exactly one of job and err is non-nil.
type JobHandler func(job *FrameJob, err error)

// MQTTClient manages the MQTT connection and the frame job subscription
type MQTTClient struct {
	client      mqtt.Client
	jobTopic    string
	jobHandler  JobHandler
	isConnected bool
	mu          sync.RWMutex
}

// InitMQTT connects to the broker from MQTT_BROKER or the config.
// If neither names a broker, MQTT is disabled and this returns nil.
func InitMQTT(config *Config, handler JobHandler) (*MQTTClient, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if handler == nil {
		return nil, fmt.Errorf("MQTT enabled but no job handler provided")
	}

	client := &MQTTClient{
		jobTopic:   jobTopic(config),
		jobHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config != nil {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "warpguard"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config != nil {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config != nil {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false) // jobs are independent frames

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)

	client.client = mqtt.NewClient(opts)
	go client.connectWithRetry()

	return client, nil
}

func jobTopic(config *Config) string {
	if config != nil && config.MQTT.JobTopic != "" {
		return config.MQTT.JobTopic
	}
	return DefaultJobTopic
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the job topic; it also runs after every reconnect
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)
	log.Printf("MQTT connected, subscribing to %s", c.jobTopic)

	token := client.Subscribe(c.jobTopic, 1, c.handleJobMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", c.jobTopic, token.Error())
		return
	}
	log.Printf("Successfully subscribed to %s", c.jobTopic)
}

// onConnectionLost is called when the MQTT connection is lost
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) handleJobMessage(client mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	log.Printf("Received frame job (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

	job, err := ParseJob(payload)
	if err != nil {
		log.Printf("Error decoding frame job: %v", err)
		c.jobHandler(nil, err)
		return
	}
	c.jobHandler(job, nil)
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client; used with MockClient in tests
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler JobHandler) *MQTTClient {
	return &MQTTClient{
		client:     client,
		jobTopic:   jobTopic(config),
		jobHandler: handler,
	}
}
