package crossfile

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/reference"
	"github.com/Ramsey-B/fern/internal/repositories/staging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Deriver fills the FABS columns that only exist after validation passes:
// agency rollups, listing titles, office names, and geography. Derivation
// runs at publication, never during validation, so a failed publish leaves
// no half-derived state visible to rules.
type Deriver struct {
	logger        ectologger.Logger
	referenceRepo *reference.Repository
	stagingRepo   *staging.Repository
}

// NewDeriver creates a new publication deriver
func NewDeriver(logger ectologger.Logger, referenceRepo *reference.Repository, stagingRepo *staging.Repository) *Deriver {
	return &Deriver{
		logger:        logger,
		referenceRepo: referenceRepo,
		stagingRepo:   stagingRepo,
	}
}

// DeriveAll derives and persists every row's publication columns, returning
// the derived rows in input order.
func (d *Deriver) DeriveAll(ctx context.Context, rows []models.FABSRow) ([]models.FABSRow, error) {
	ctx, span := tracing.StartSpan(ctx, "crossfile.Deriver.DeriveAll")
	defer span.End()

	out := make([]models.FABSRow, len(rows))
	for i, row := range rows {
		derived, err := d.Derive(ctx, row)
		if err != nil {
			return nil, err
		}
		if err := d.stagingRepo.UpdateFABSDerived(ctx, *derived); err != nil {
			return nil, err
		}
		out[i] = *derived
	}

	d.logger.WithContext(ctx).WithFields(map[string]any{"rows": len(out)}).Info("Derived publication columns")
	return out, nil
}

// Derive computes one row's publication columns without persisting
func (d *Deriver) Derive(ctx context.Context, row models.FABSRow) (*models.FABSRow, error) {
	ctx, span := tracing.StartSpan(ctx, "crossfile.Deriver.Derive")
	defer span.End()

	d.deriveFundingTotal(&row)

	if err := d.deriveCFDA(ctx, &row); err != nil {
		return nil, err
	}
	if err := d.deriveAgency(ctx, &row); err != nil {
		return nil, err
	}
	if err := d.deriveOffices(ctx, &row); err != nil {
		return nil, err
	}
	if err := d.deriveLegalEntityGeo(ctx, &row); err != nil {
		return nil, err
	}
	if err := d.deriveCountryNames(ctx, &row); err != nil {
		return nil, err
	}

	return &row, nil
}

// deriveFundingTotal sums federal and non-federal amounts. Both nil leaves
// the total nil; one side nil counts as zero.
func (d *Deriver) deriveFundingTotal(row *models.FABSRow) {
	if row.FederalActionObligation == nil && row.NonFederalFundingAmount == nil {
		return
	}
	total := 0.0
	if row.FederalActionObligation != nil {
		total += *row.FederalActionObligation
	}
	if row.NonFederalFundingAmount != nil {
		total += *row.NonFederalFundingAmount
	}
	row.TotalFundingAmount = &total
}

func (d *Deriver) deriveCFDA(ctx context.Context, row *models.FABSRow) error {
	if row.CFDANumber == nil {
		return nil
	}
	program, err := d.referenceRepo.GetCFDAProgram(ctx, *row.CFDANumber)
	if err != nil {
		return err
	}
	if program != nil {
		row.CFDATitle = &program.ProgramTitle
	}
	return nil
}

func (d *Deriver) deriveAgency(ctx context.Context, row *models.FABSRow) error {
	if row.AwardingSubTierAgencyC == nil {
		return nil
	}
	agency, err := d.referenceRepo.GetSubTierAgency(ctx, *row.AwardingSubTierAgencyC)
	if err != nil {
		return err
	}
	if agency != nil {
		row.AwardingAgencyCode = &agency.AgencyCode
		row.AwardingAgencyName = &agency.AgencyName
	}
	return nil
}

func (d *Deriver) deriveOffices(ctx context.Context, row *models.FABSRow) error {
	if row.AwardingOfficeCode != nil {
		office, err := d.referenceRepo.GetOffice(ctx, *row.AwardingOfficeCode)
		if err != nil {
			return err
		}
		if office != nil {
			row.AwardingOfficeName = &office.OfficeName
		}
	}
	if row.FundingOfficeCode != nil {
		office, err := d.referenceRepo.GetOffice(ctx, *row.FundingOfficeCode)
		if err != nil {
			return err
		}
		if office != nil {
			row.FundingOfficeName = &office.OfficeName
		}
	}
	return nil
}

func (d *Deriver) deriveLegalEntityGeo(ctx context.Context, row *models.FABSRow) error {
	if row.LegalEntityZip5 == nil {
		return nil
	}
	zip, err := d.referenceRepo.GetZip(ctx, *row.LegalEntityZip5, row.LegalEntityZipLast4)
	if err != nil {
		return err
	}
	if zip == nil {
		return nil
	}
	row.LegalEntityStateCode = &zip.StateAbbreviation
	row.LegalEntityCountyName = zip.CountyName
	row.LegalEntityCongressional = zip.CongressionalDistrict
	return nil
}

func (d *Deriver) deriveCountryNames(ctx context.Context, row *models.FABSRow) error {
	if row.LegalEntityCountryCode != nil {
		country, err := d.referenceRepo.GetCountry(ctx, *row.LegalEntityCountryCode)
		if err != nil {
			return err
		}
		if country != nil {
			row.LegalEntityCountryName = &country.Name
		}
	}
	if row.PPoPCountryCode != nil {
		country, err := d.referenceRepo.GetCountry(ctx, *row.PPoPCountryCode)
		if err != nil {
			return err
		}
		if country != nil {
			row.PPoPCountryName = &country.Name
		}
	}
	return nil
}
