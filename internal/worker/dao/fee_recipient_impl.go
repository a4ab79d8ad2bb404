package dao

import (
	"context"
	"sort"
	"strings"
	"sync"

	"web3-royalty/internal/worker/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultFeeRecipients 主网内置的市场手续费地址
var defaultFeeRecipients = []model.FeeRecipient{
	// opensea
	{Address: "0x0000a26b00c1f0df003000390027140000faa719", Kind: model.FEE_RECIPIENT_KIND_MARKETPLACE},
	{Address: "0x8de9c5a032463c561423387a9648c5c7bcc5bc90", Kind: model.FEE_RECIPIENT_KIND_MARKETPLACE},
	// looks-rare
	{Address: "0x5924a28caaf1cc016617874a2f0c3710d881f3c1", Kind: model.FEE_RECIPIENT_KIND_MARKETPLACE},
	// x2y2
	{Address: "0xd823c605807cc5e6bd6fc0d7e4eea50d3e2d66cd", Kind: model.FEE_RECIPIENT_KIND_MARKETPLACE},
}

type feeRecipientDAO struct {
	tl         *zap.Logger
	db         *gorm.DB
	mu         sync.RWMutex
	recipients map[string]model.FeeRecipient
}

func NewFeeRecipientDAO(tl *zap.Logger, db *gorm.DB) FeeRecipientDAO {
	f := &feeRecipientDAO{tl: tl, db: db}
	f.replace(nil)
	return f
}

func (f *feeRecipientDAO) replace(rows []model.FeeRecipient) {
	recipients := make(map[string]model.FeeRecipient, len(defaultFeeRecipients)+len(rows))
	for _, row := range append(append([]model.FeeRecipient{}, defaultFeeRecipients...), rows...) {
		if row.Kind != model.FEE_RECIPIENT_KIND_MARKETPLACE {
			continue
		}
		row.Address = strings.ToLower(row.Address)
		recipients[row.Address] = row
	}

	f.mu.Lock()
	f.recipients = recipients
	f.mu.Unlock()
}

func (f *feeRecipientDAO) IsKnownMarketplaceFeeRecipient(address, orderKind string) bool {
	f.mu.RLock()
	row, ok := f.recipients[strings.ToLower(address)]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	if len(row.OrderKinds) == 0 {
		return true
	}
	for _, kind := range row.OrderKinds {
		if kind == orderKind {
			return true
		}
	}
	return false
}

func (f *feeRecipientDAO) Reload(ctx context.Context) error {
	if f.db == nil {
		return nil
	}
	var rows []model.FeeRecipient
	if err := f.db.WithContext(ctx).Where("kind = ?", model.FEE_RECIPIENT_KIND_MARKETPLACE).Find(&rows).Error; err != nil {
		return err
	}
	f.replace(rows)
	f.tl.Info("fee recipients reloaded", zap.Int("db_rows", len(rows)))
	return nil
}

func (f *feeRecipientDAO) List() []model.FeeRecipient {
	f.mu.RLock()
	defer f.mu.RUnlock()
	list := make([]model.FeeRecipient, 0, len(f.recipients))
	for _, row := range f.recipients {
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
	return list
}
