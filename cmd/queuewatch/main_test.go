package main

import (
	"testing"

	"polling_station/internal/models"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelURL(t *testing.T) {
	tests := []struct {
		api  string
		want string
	}{
		{"http://localhost:3001", "ws://localhost:3001/api/queues/ws"},
		{"https://queues.example.org/", "wss://queues.example.org/api/queues/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.api, func(t *testing.T) {
			assert.Equal(t, tt.want, channelURL(tt.api))
		})
	}
}

func TestFormatQueues(t *testing.T) {
	got := formatQueues([]models.Queue{
		{RoomNumber: 1, CurrentQueue: 2, EstimatedWaitTime: 10},
		{RoomNumber: 2},
	})
	assert.Equal(t, "Очереди: [1: 2 чел., 10 мин] [2: 0 чел., 0 мин]", got)
}

func TestAdjustmentFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *adjustment
		wantErr bool
	}{
		{"без флагов", nil, nil, false},
		{"increment", []string{"--increment", "3"}, &adjustment{room: 3}, false},
		{"помещение 0", []string{"--decrement=0"}, &adjustment{room: 0, decrement: true}, false},
		{"оба флага", []string{"--increment", "1", "--decrement", "2"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("queuewatch", flag.ContinueOnError)
			registerAdjustFlags(fs)
			require.NoError(t, fs.Parse(tt.args))

			got, err := adjustmentFromFlags(fs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
