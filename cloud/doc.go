// Package cloud defines the account model for the backups framework.
//
// A backup flow spans two AWS accounts: the source account that owns the
// data-warehouse cluster and the target account that receives shared
// snapshots or copied recovery points. Each side is represented by an
// Account, constructed by a Provider from locally configured credentials.
// Service bindings (Redshift, AWS Backup, IAM, CloudFormation) live in the
// subpackages and are built from an Account's session.
package cloud
