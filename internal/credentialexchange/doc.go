// credentialexchange
//
// Handles the flows for exchanging LDAP credentials for temporary object storage creds.
//
// Currently supports AssumeRoleWithLDAPIdentity as served by an S3 compatible STS endpoint,
// the exchanged credentials can be cached in the OS secret store and handed out
// either as a credential_process payload or written to a named profile.
package credentialexchange
