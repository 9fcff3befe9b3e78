package dataset

import (
	"github.com/chris/tgrid/internal/selection"
	"github.com/chris/tgrid/pkg/models"
)

func selectionRecorder(out *[]models.SelectionRange) selection.Subscriber {
	return selection.SubscriberFunc(func(r models.SelectionRange) {
		*out = append(*out, r)
	})
}
