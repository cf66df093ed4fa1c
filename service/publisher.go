package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"ziwuxx-intake/models"
	"ziwuxx-intake/utils"
)

// KafkaPublisher writes inquiry events keyed by inquiry ID.
type KafkaPublisher struct {
	producer utils.KafkaProducer
	topic    string
}

func NewKafkaPublisher(producer utils.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSubmitted(ctx context.Context, inquiry models.Inquiry) error {
	payload, err := json.Marshal(models.InquiryEvent{
		ID:    uuid.NewString(),
		Event: models.EventInquirySubmitted,
		Data:  inquiry,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inquiry event: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(inquiry.ID), 10))
	return p.producer.SendMessage(ctx, p.topic, key, payload)
}
